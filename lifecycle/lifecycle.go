// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle lets builders register work which must happen after
// a [gateway.Runtime] stops, e.g. flushing telemetry once the server has
// drained its workers.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Hook is work performed relative to a Runtime's execution.
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	var errs []error
	for _, h := range mh {
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiHook runs every hook in order, regardless of earlier failures,
// and joins their errors.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

// Context collects post-run hooks registered while a Runtime is built.
// It is safe for concurrent use.
type Context struct {
	mu       sync.Mutex
	postRuns multiHook
}

// OnPostRun registers hook to run after the Runtime returns.
func (c *Context) OnPostRun(hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postRuns = append(c.postRuns, hook)
}

// PostRun returns every hook registered so far as a single [Hook].
func (c *Context) PostRun() Hook {
	c.mu.Lock()
	defer c.mu.Unlock()

	hooks := make(multiHook, len(c.postRuns))
	copy(hooks, c.postRuns)
	return hooks
}

type contextKey struct{}

// NewContext returns a copy of parent carrying c.
func NewContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey{}, c)
}

// FromContext returns the [Context] carried by ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok
}

// ShutdownTimeout bounds how long post-run hooks may take.
const ShutdownTimeout = 10 * time.Second

// ShutdownContext returns a context for running post-run hooks. The
// Runtime usually stops because parent was cancelled, so the returned
// context keeps parent's values but not its cancellation, and expires
// after timeout instead.
func ShutdownContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
