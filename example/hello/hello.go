// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package hello provides sample gateway handlers selectable by name.
package hello

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/environ"
)

// Greeting is the body written by [Hello].
const Greeting = "Hello world from a simple gateway app\n"

// Hello responds to every request with [Greeting].
func Hello() gateway.Handler {
	return gateway.HandlerFunc(func(_ environ.Environ, start gateway.StartResponseFunc) ([][]byte, error) {
		start("200 OK", []gateway.Header{
			{Name: "Content-Type", Value: "text/plain"},
		})
		return [][]byte{[]byte(Greeting)}, nil
	})
}

// Environ responds with every environment key and its value, one per
// line in key order, followed by a blank line and the raw request.
func Environ() gateway.Handler {
	return gateway.HandlerFunc(func(env environ.Environ, start gateway.StartResponseFunc) ([][]byte, error) {
		var sb strings.Builder
		for _, k := range env.Keys() {
			switch k {
			case environ.Input, environ.Errors:
				continue
			}
			v, _ := env.Lookup(k)
			fmt.Fprintf(&sb, "%s=%v\n", k, v)
		}
		sb.WriteString("\n")

		raw, err := io.ReadAll(env.Input())
		if err != nil {
			return nil, err
		}

		start("200 OK", []gateway.Header{
			{Name: "Content-Type", Value: "text/plain"},
		})
		return [][]byte{[]byte(sb.String()), raw}, nil
	})
}

var handlers = map[string]func() gateway.Handler{
	"hello":   Hello,
	"environ": Environ,
}

// UnknownHandlerError is returned by Lookup for an unregistered name.
type UnknownHandlerError struct {
	Name string
}

// Error implements the [error] interface.
func (e UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown handler %q, expected one of: %s", e.Name, strings.Join(Names(), ", "))
}

// Lookup returns a new instance of the handler registered under name.
func Lookup(name string) (gateway.Handler, error) {
	f, ok := handlers[name]
	if !ok {
		return nil, UnknownHandlerError{Name: name}
	}
	return f(), nil
}

// Names returns every registered handler name in sorted order.
func Names() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
