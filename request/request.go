// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package request parses the request line of a raw HTTP request.
//
// Only the first line is interpreted. Headers and body are left to
// the handler, which receives the full raw request text as its input
// stream.
package request

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Line is the parsed first line of a request, e.g. "GET /hello HTTP/1.1".
type Line struct {
	Method  string
	Path    string
	Version string
}

// String renders the line back in its wire form.
func (l Line) String() string {
	return l.Method + " " + l.Path + " " + l.Version
}

var (
	// ErrEmpty is the cause of a ParseError for a request with no bytes.
	ErrEmpty = errors.New("empty request")

	// ErrEncoding is the cause of a ParseError for a request which is not valid UTF-8.
	ErrEncoding = errors.New("request is not valid utf-8")

	// ErrFieldCount is the cause of a ParseError for a request line
	// which does not split into exactly three fields.
	ErrFieldCount = errors.New("request line must have exactly 3 fields")
)

// ParseError is returned for a malformed request.
type ParseError struct {
	Line  string
	Cause error
}

// Error implements the [error] interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("malformed request line %q: %s", e.Line, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ParseError) Unwrap() error {
	return e.Cause
}

// Parse takes the first line of raw, strips its line terminator and
// splits it on whitespace. Anything other than exactly three fields
// is a [ParseError].
func Parse(raw []byte) (Line, error) {
	if len(raw) == 0 {
		return Line{}, ParseError{Cause: ErrEmpty}
	}
	if !utf8.Valid(raw) {
		return Line{}, ParseError{Cause: ErrEncoding}
	}

	first := raw
	if i := bytes.IndexAny(raw, "\r\n"); i >= 0 {
		first = raw[:i]
	}
	line := string(first)

	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Line{}, ParseError{Line: line, Cause: ErrFieldCount}
	}

	l := Line{
		Method:  fields[0],
		Path:    fields[1],
		Version: fields[2],
	}
	return l, nil
}

// Lines splits raw request text into lines the way they are echoed to
// the debug log. Both "\n" and "\r\n" terminate a line.
func Lines(text string) []string {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
