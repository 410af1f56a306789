// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/z5labs/gateway/internal/try"
	"github.com/z5labs/gateway/lifecycle"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying Runtime returns an error", func(t *testing.T) {
			runErr := errors.New("failed to run")
			rt := Recover(runFunc(func(ctx context.Context) error {
				return runErr
			}))

			err := rt.Run(context.Background())
			if !assert.Equal(t, runErr, err) {
				return
			}
		})

		t.Run("if the underlying Runtime panics with an error value", func(t *testing.T) {
			runErr := errors.New("failed to run")
			rt := Recover(runFunc(func(ctx context.Context) error {
				panic(runErr)
			}))

			err := rt.Run(context.Background())
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
		})

		t.Run("if the underlying Runtime panics with a non-error value", func(t *testing.T) {
			rt := Recover(runFunc(func(ctx context.Context) error {
				panic("hello world")
			}))

			err := rt.Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "hello world", perr.Value) {
				return
			}
		})
	})
}

func TestWithSignalNotifications(t *testing.T) {
	t.Run("will propagate context cancellation", func(t *testing.T) {
		t.Run("if the parent context is cancelled", func(t *testing.T) {
			rt := WithSignalNotifications(runFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}), syscall.SIGUSR1)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := rt.Run(ctx)
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
		})

		t.Run("if the process receives a signal", func(t *testing.T) {
			started := make(chan struct{})
			rt := WithSignalNotifications(runFunc(func(ctx context.Context) error {
				close(started)
				<-ctx.Done()
				return nil
			}), syscall.SIGUSR1)

			errCh := make(chan error, 1)
			go func() {
				errCh <- rt.Run(context.Background())
			}()

			<-started
			err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
			if !assert.Nil(t, err) {
				return
			}

			select {
			case err := <-errCh:
				assert.Nil(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("runtime was not cancelled")
			}
		})
	})
}

func TestPostRun(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying Runtime fails", func(t *testing.T) {
			runErr := errors.New("failed to run")
			rt := PostRun(runFunc(func(ctx context.Context) error {
				return runErr
			}), nil)

			err := rt.Run(context.Background())
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
		})

		t.Run("if both the Runtime and the hook fail", func(t *testing.T) {
			runErr := errors.New("failed to run")
			hookErr := errors.New("failed to post run")
			rt := PostRun(
				runFunc(func(ctx context.Context) error {
					return runErr
				}),
				lifecycle.HookFunc(func(ctx context.Context) error {
					return hookErr
				}),
			)

			err := rt.Run(context.Background())
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
			if !assert.ErrorIs(t, err, hookErr) {
				return
			}
		})
	})

	t.Run("will run the hook with a live context", func(t *testing.T) {
		t.Run("if the Runtime stopped because its context was cancelled", func(t *testing.T) {
			var hookCtxErr error
			rt := PostRun(
				runFunc(func(ctx context.Context) error {
					<-ctx.Done()
					return nil
				}),
				lifecycle.HookFunc(func(ctx context.Context) error {
					hookCtxErr = ctx.Err()
					return nil
				}),
			)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := rt.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, hookCtxErr) {
				return
			}
		})
	})

	t.Run("will run the hook and keep panicking", func(t *testing.T) {
		t.Run("if the Runtime panics", func(t *testing.T) {
			ran := false
			rt := PostRun(
				runFunc(func(ctx context.Context) error {
					panic("boom")
				}),
				lifecycle.HookFunc(func(ctx context.Context) error {
					ran = true
					return nil
				}),
			)

			err := Recover(rt).Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.True(t, ran) {
				return
			}
		})
	})
}
