// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package try collects the deferred helpers used to keep a worker's
// failure confined to the worker.
package try

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

// Error implements the [error] interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is itself an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover must be deferred directly. A recovered panic is joined
// with whatever error is already stored in err.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}

	perr := PanicError{
		Value: r,
	}
	if *err == nil {
		*err = perr
		return
	}
	*err = errors.Join(*err, perr)
}

// CloseError is returned when closing a resource fails.
type CloseError struct {
	Cause error
}

// Error implements the [error] interface.
func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e CloseError) Unwrap() error {
	return e.Cause
}

// Close closes v if it implements [io.Closer] and joins any
// failure into err as a [CloseError].
func Close(err *error, v any) {
	c, ok := v.(io.Closer)
	if !ok || c == nil {
		return
	}

	cerr := c.Close()
	if cerr == nil {
		return
	}

	werr := CloseError{Cause: cerr}
	if *err == nil {
		*err = werr
		return
	}
	*err = errors.Join(*err, werr)
}

// OnceCloser guarantees the underlying Closer is closed at most once.
// Every call after the first returns the first call's result.
type OnceCloser struct {
	c    io.Closer
	once sync.Once
	err  error
}

// CloseOnce wraps c so repeated Close calls reach it only once.
func CloseOnce(c io.Closer) *OnceCloser {
	return &OnceCloser{c: c}
}

// Close implements the [io.Closer] interface.
func (oc *OnceCloser) Close() error {
	oc.once.Do(func() {
		oc.err = oc.c.Close()
	})
	return oc.err
}
