// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package try

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

func TestRecover(t *testing.T) {
	t.Run("will update the error ref value", func(t *testing.T) {
		t.Run("if a panic is successfully recovered from and the ref is set to nil", func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err)
				panic("hello world")
			}

			err := f()

			var perr PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "hello world", perr.Value) {
				return
			}
			if !assert.Nil(t, perr.Unwrap()) {
				return
			}
		})

		t.Run("if a panic is successfully recovered from and the ref is set to a non-nil value", func(t *testing.T) {
			funcErr := errors.New("error value")
			panicErr := errors.New("panic error")
			f := func() (err error) {
				defer Recover(&err)
				err = funcErr
				panic(panicErr)
			}

			err := f()

			if !assert.ErrorIs(t, err, funcErr) {
				return
			}
			if !assert.ErrorIs(t, err, panicErr) {
				return
			}
		})
	})

	t.Run("will not update the error ref value", func(t *testing.T) {
		t.Run("if no panic occurs", func(t *testing.T) {
			funcErr := errors.New("error value")
			f := func() (err error) {
				defer Recover(&err)
				return funcErr
			}

			err := f()
			if !assert.Equal(t, funcErr, err) {
				return
			}
		})
	})
}

func TestClose(t *testing.T) {
	t.Run("will set the error ref value", func(t *testing.T) {
		t.Run("if the closer fails and the ref is nil", func(t *testing.T) {
			closeErr := errors.New("close failed")

			var err error
			Close(&err, closeFunc(func() error { return closeErr }))

			var cerr CloseError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
			if !assert.ErrorIs(t, cerr, closeErr) {
				return
			}
		})

		t.Run("if the closer fails and the ref already holds an error", func(t *testing.T) {
			closeErr := errors.New("close failed")
			prevErr := errors.New("previous")

			err := prevErr
			Close(&err, closeFunc(func() error { return closeErr }))

			if !assert.ErrorIs(t, err, prevErr) {
				return
			}
			if !assert.ErrorIs(t, err, closeErr) {
				return
			}
		})
	})

	t.Run("will leave the error ref untouched", func(t *testing.T) {
		t.Run("if the value is not a closer", func(t *testing.T) {
			var err error
			Close(&err, "not a closer")
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}

func TestOnceCloser_Close(t *testing.T) {
	t.Run("will only close the underlying closer once", func(t *testing.T) {
		closeErr := errors.New("close failed")
		calls := 0
		oc := CloseOnce(closeFunc(func() error {
			calls++
			return closeErr
		}))

		err1 := oc.Close()
		err2 := oc.Close()

		if !assert.Equal(t, 1, calls) {
			return
		}
		if !assert.Equal(t, closeErr, err1) {
			return
		}
		if !assert.Equal(t, closeErr, err2) {
			return
		}
	})
}
