// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package response records the status and headers a handler starts a
// response with and serializes the complete HTTP/1.1 response.
package response

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/z5labs/gateway"
)

// DefaultSoftware is the value of the Server header when none is configured.
const DefaultSoftware = "GatewayServer 0.2"

// Recorder is the per-request state behind a handler's
// [gateway.StartResponseFunc]. It is never shared between requests.
type Recorder struct {
	software string
	date     DateFormat
	now      func() time.Time

	started bool
	status  string
	headers []gateway.Header
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// Software sets the value of the Server header.
func Software(s string) RecorderOption {
	return func(r *Recorder) {
		r.software = s
	}
}

// Date sets how the Date header is rendered.
func Date(f DateFormat) RecorderOption {
	return func(r *Recorder) {
		r.date = f
	}
}

// Clock sets the source of the current time for the Date header.
func Clock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder returns a Recorder which has not been started.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		software: DefaultSoftware,
		date:     DateCompat,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartResponse implements [gateway.StartResponseFunc]. The Date and Server
// headers are appended after the handler's headers. A later call replaces
// everything recorded by an earlier one.
func (r *Recorder) StartResponse(status string, headers []gateway.Header) {
	hs := make([]gateway.Header, 0, len(headers)+2)
	hs = append(hs, headers...)
	hs = append(hs,
		gateway.Header{Name: "Date", Value: r.date.Format(r.now())},
		gateway.Header{Name: "Server", Value: r.software},
	)

	r.started = true
	r.status = status
	r.headers = hs
}

// Started reports whether StartResponse has been called.
func (r *Recorder) Started() bool {
	return r.started
}

// Status returns the recorded status, e.g. "200 OK".
func (r *Recorder) Status() string {
	return r.status
}

// Headers returns a copy of the recorded headers, server headers included.
func (r *Recorder) Headers() []gateway.Header {
	hs := make([]gateway.Header, len(r.headers))
	copy(hs, r.headers)
	return hs
}

// ErrNotStarted is the cause of a ContractViolationError for a handler
// which returned without starting its response.
var ErrNotStarted = errors.New("handler returned without calling start response")

// ContractViolationError is returned when a handler breaks the gateway contract.
type ContractViolationError struct {
	Cause error
}

// Error implements the [error] interface.
func (e ContractViolationError) Error() string {
	return fmt.Sprintf("gateway contract violated: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ContractViolationError) Unwrap() error {
	return e.Cause
}

// Serialize renders the status line, the recorded headers one per line,
// a blank line and then every body chunk in order.
func Serialize(rec *Recorder, body [][]byte, style HeaderStyle) ([]byte, error) {
	if !rec.Started() {
		return nil, ContractViolationError{Cause: ErrNotStarted}
	}

	sep := style.Separator()

	size := len("HTTP/1.1 ") + len(rec.status) + 4
	for _, h := range rec.headers {
		size += len(h.Name) + len(sep) + len(h.Value) + 2
	}
	for _, chunk := range body {
		size += len(chunk)
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(rec.status)
	buf.WriteString("\r\n")
	for _, h := range rec.headers {
		buf.WriteString(h.Name)
		buf.WriteString(sep)
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	for _, chunk := range body {
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}
