// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package key names the location of a value in nested config.
package key

import (
	"strings"
)

// Keyer is implemented by every key type a config Store accepts.
type Keyer interface {
	Key() string
}

// Name is a single, top level key.
type Name string

// Key implements the [Keyer] interface.
func (k Name) Key() string {
	return string(k)
}

// Chain is a path of keys into nested config, e.g. server.port.
type Chain []Keyer

// Key implements the [Keyer] interface. Keys are joined with dots.
func (k Chain) Key() string {
	var sb strings.Builder
	for i, kk := range k {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(kk.Key())
	}
	return sb.String()
}

// Split turns s into a Chain of the names between each sep, skipping
// empty names, so "SERVER__PORT" split on "_" is server then port.
func Split(s, sep string) Chain {
	var chain Chain
	for _, name := range strings.Split(s, sep) {
		if name == "" {
			continue
		}
		chain = append(chain, Name(name))
	}
	return chain
}
