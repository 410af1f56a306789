// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/z5labs/gateway/config"
	"github.com/z5labs/gateway/lifecycle"
)

// Runtime is anything which runs until its context is cancelled
// or it fails, e.g. a [server.Server].
type Runtime interface {
	Run(context.Context) error
}

// Builder initializes a Runtime from a config value.
type Builder[T any] interface {
	Build(ctx context.Context, cfg T) (Runtime, error)
}

// BuilderFunc is a func variant of the [Builder] interface.
type BuilderFunc[T any] func(context.Context, T) (Runtime, error)

// Build implements the [Builder] interface.
func (f BuilderFunc[T]) Build(ctx context.Context, cfg T) (Runtime, error) {
	return f(ctx, cfg)
}

// Run reads the given config sources, later sources overriding earlier
// ones, unmarshals them into T, builds the [Runtime] and runs it.
//
// The build context carries a [lifecycle.Context]. Hooks registered on it
// run once the Runtime returns, or once Build fails, with a context that
// outlives ctx's cancellation.
func Run[T any](ctx context.Context, builder Builder[T], srcs ...config.Source) error {
	m, err := config.Read(srcs...)
	if err != nil {
		return ConfigReadError{Cause: err}
	}

	var cfg T
	err = m.Unmarshal(&cfg)
	if err != nil {
		return ConfigUnmarshalError{Cause: err}
	}

	lc := &lifecycle.Context{}
	ctx = lifecycle.NewContext(ctx, lc)

	rt, err := builder.Build(ctx, cfg)
	if err != nil {
		return errors.Join(BuildError{Cause: err}, postRun(ctx, lc))
	}

	err = rt.Run(ctx)
	if err != nil {
		err = RunError{Cause: err}
	}
	return errors.Join(err, postRun(ctx, lc))
}

func postRun(ctx context.Context, lc *lifecycle.Context) error {
	hctx, cancel := lifecycle.ShutdownContext(ctx, lifecycle.ShutdownTimeout)
	defer cancel()

	err := lc.PostRun().Run(hctx)
	if err != nil {
		return PostRunError{Cause: err}
	}
	return nil
}

// ConfigReadError is returned when a config source could not be applied.
type ConfigReadError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigReadError) Error() string {
	return fmt.Sprintf("failed to read config source(s): %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigReadError) Unwrap() error {
	return e.Cause
}

// ConfigUnmarshalError is returned when the merged config does not fit T.
type ConfigUnmarshalError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigUnmarshalError) Error() string {
	return fmt.Sprintf("failed to unmarshal config into custom type: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigUnmarshalError) Unwrap() error {
	return e.Cause
}

// BuildError is returned when the [Builder] fails.
type BuildError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e BuildError) Error() string {
	return fmt.Sprintf("failed to build runtime: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e BuildError) Unwrap() error {
	return e.Cause
}

// RunError is returned when the [Runtime] fails.
type RunError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e RunError) Error() string {
	return fmt.Sprintf("failed to run: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e RunError) Unwrap() error {
	return e.Cause
}

// PostRunError is returned when a hook registered on the build
// context's [lifecycle.Context] fails.
type PostRunError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e PostRunError) Error() string {
	return fmt.Sprintf("failed to run post-run hooks: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e PostRunError) Unwrap() error {
	return e.Cause
}
