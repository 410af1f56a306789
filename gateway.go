// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"github.com/z5labs/gateway/environ"
)

// Header is a single response header. Order of a []Header is
// preserved on the wire and duplicate names are allowed.
type Header struct {
	Name  string
	Value string
}

// StartResponseFunc records the status line and headers of a response.
// It performs no I/O. A Handler must call it before returning its body.
type StartResponseFunc func(status string, headers []Header)

// Handler is the single extension point of the server. It receives the
// request environment and a StartResponseFunc and returns the response
// body as a sequence of chunks.
type Handler interface {
	ServeGateway(env environ.Environ, start StartResponseFunc) ([][]byte, error)
}

// HandlerFunc is a func variant of the [Handler] interface.
type HandlerFunc func(environ.Environ, StartResponseFunc) ([][]byte, error)

// ServeGateway implements the [Handler] interface.
func (f HandlerFunc) ServeGateway(env environ.Environ, start StartResponseFunc) ([][]byte, error) {
	return f(env, start)
}
