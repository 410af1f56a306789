// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wraps a [gateway.Runtime] with process level behaviour.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/internal/try"
	"github.com/z5labs/gateway/lifecycle"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover returns a Runtime which converts a panic escaping rt into a
// [try.PanicError].
func Recover(rt gateway.Runtime) gateway.Runtime {
	return runFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return rt.Run(ctx)
	})
}

// WithSignalNotifications cancels the context given to rt when the
// process receives any of signals. This is how a server is told to
// stop accepting and drain its workers.
func WithSignalNotifications(rt gateway.Runtime, signals ...os.Signal) gateway.Runtime {
	return runFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return rt.Run(sigCtx)
	})
}

// PostRun runs hook after rt returns, even if rt panics. The hook gets
// a context which is not cancelled with the one rt ran with.
func PostRun(rt gateway.Runtime, hook lifecycle.Hook) gateway.Runtime {
	return runFunc(func(ctx context.Context) (err error) {
		defer runPostRun(ctx, hook, &err)

		return rt.Run(ctx)
	})
}

func runPostRun(ctx context.Context, hook lifecycle.Hook, err *error) {
	if hook == nil {
		return
	}

	// a panic must still reach the caller after the hook has run
	r := recover()
	defer func() {
		if r != nil {
			panic(r)
		}
	}()

	hctx, cancel := lifecycle.ShutdownContext(ctx, lifecycle.ShutdownTimeout)
	defer cancel()

	*err = errors.Join(*err, hook.Run(hctx))
}
