// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/environ"
	"github.com/z5labs/gateway/internal/noop"
	"github.com/z5labs/gateway/internal/try"
	"github.com/z5labs/gateway/request"
	"github.com/z5labs/gateway/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type stubConn struct {
	net.Conn

	readFunc  func([]byte) (int, error)
	writeFunc func([]byte) (int, error)
	closes    int
}

func (c *stubConn) Read(b []byte) (int, error)  { return c.readFunc(b) }
func (c *stubConn) Write(b []byte) (int, error) { return c.writeFunc(b) }
func (c *stubConn) RemoteAddr() net.Addr        { return nil }
func (c *stubConn) Close() error {
	c.closes++
	return nil
}

func readString(s string) func([]byte) (int, error) {
	return func(b []byte) (int, error) {
		return copy(b, s), nil
	}
}

func newTestConnHandler(h gateway.Handler) *connHandler {
	return &connHandler{
		log:            slog.New(noop.LogHandler{}),
		tracer:         tracenoop.NewTracerProvider().Tracer("test"),
		handler:        h,
		srv:            environ.Server{Name: "gateway.test", Port: 8888},
		errSink:        io.Discard,
		now:            func() time.Time { return time.Date(2019, time.November, 9, 1, 12, 23, 0, time.UTC) },
		readBufferSize: 1024,
		software:       response.DefaultSoftware,
		headerStyle:    response.HeaderCompat,
		dateFormat:     response.DateCompat,
	}
}

func TestConnHandler_serve(t *testing.T) {
	t.Run("will write the full response in a single write", func(t *testing.T) {
		var writes []string
		conn := &stubConn{
			readFunc: readString(helloRequest),
			writeFunc: func(b []byte) (int, error) {
				writes = append(writes, string(b))
				return len(b), nil
			},
		}

		err := newTestConnHandler(helloHandler()).serve(context.Background(), 1, conn)
		require.NoError(t, err)

		require.Len(t, writes, 1)
		assert.Equal(t,
			"HTTP/1.1 200 OK\r\n"+
				"Content-Type : text/plain\r\n"+
				"Date : Sat, 9 Nov 2019 1:12:23 GMT\r\n"+
				"Server : GatewayServer 0.2\r\n"+
				"\r\n"+
				"hi",
			writes[0],
		)
		assert.Equal(t, 1, conn.closes)
	})

	t.Run("will only read up to the buffer size", func(t *testing.T) {
		var seen int
		conn := &stubConn{
			readFunc: func(b []byte) (int, error) {
				seen = len(b)
				return copy(b, helloRequest), nil
			},
			writeFunc: func(b []byte) (int, error) { return len(b), nil },
		}

		ch := newTestConnHandler(helloHandler())
		ch.readBufferSize = 64

		err := ch.serve(context.Background(), 1, conn)
		require.NoError(t, err)
		assert.Equal(t, 64, seen)
	})

	t.Run("will close the connection exactly once", func(t *testing.T) {
		testCases := []struct {
			Name      string
			Read      func([]byte) (int, error)
			Write     func([]byte) (int, error)
			Handler   gateway.Handler
			ErrorKind string
			Target    any
		}{
			{
				Name:      "if the peer closes without sending anything",
				Read:      func([]byte) (int, error) { return 0, io.EOF },
				Handler:   helloHandler(),
				ErrorKind: "parse",
				Target:    &request.ParseError{},
			},
			{
				Name:      "if reading fails",
				Read:      func([]byte) (int, error) { return 0, errors.New("reset") },
				Handler:   helloHandler(),
				ErrorKind: "read",
				Target:    &ReadError{},
			},
			{
				Name:      "if the request line has too many fields",
				Read:      readString("GET / HTTP/1.1 extra\r\n\r\n"),
				Handler:   helloHandler(),
				ErrorKind: "parse",
				Target:    &request.ParseError{},
			},
			{
				Name: "if the handler fails",
				Read: readString(helloRequest),
				Handler: gateway.HandlerFunc(func(environ.Environ, gateway.StartResponseFunc) ([][]byte, error) {
					return nil, errors.New("boom")
				}),
				ErrorKind: "handler",
				Target:    &HandlerError{},
			},
			{
				Name: "if the handler panics",
				Read: readString(helloRequest),
				Handler: gateway.HandlerFunc(func(environ.Environ, gateway.StartResponseFunc) ([][]byte, error) {
					panic(errors.New("boom"))
				}),
				ErrorKind: "panic",
				Target:    &try.PanicError{},
			},
			{
				Name: "if the handler never starts the response",
				Read: readString(helloRequest),
				Handler: gateway.HandlerFunc(func(environ.Environ, gateway.StartResponseFunc) ([][]byte, error) {
					return [][]byte{[]byte("hi")}, nil
				}),
				ErrorKind: "contract_violation",
				Target:    &response.ContractViolationError{},
			},
			{
				Name:      "if writing fails",
				Read:      readString(helloRequest),
				Write:     func([]byte) (int, error) { return 0, errors.New("broken pipe") },
				Handler:   helloHandler(),
				ErrorKind: "write",
				Target:    &WriteError{},
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				var wrote bool
				write := testCase.Write
				if write == nil {
					write = func(b []byte) (int, error) {
						wrote = true
						return len(b), nil
					}
				}
				conn := &stubConn{readFunc: testCase.Read, writeFunc: write}

				err := newTestConnHandler(testCase.Handler).serve(context.Background(), 1, conn)
				if !assert.Error(t, err) {
					return
				}
				if !assert.ErrorAs(t, err, testCase.Target) {
					return
				}
				if !assert.Equal(t, testCase.ErrorKind, exitKind(err)) {
					return
				}
				if !assert.False(t, wrote) {
					return
				}
				if !assert.Equal(t, 1, conn.closes) {
					return
				}
			})
		}
	})
}

func TestExitKind(t *testing.T) {
	testCases := []struct {
		Err  error
		Kind string
	}{
		{Err: nil, Kind: "ok"},
		{Err: try.CloseError{Cause: errors.New("x")}, Kind: "close"},
		{Err: errors.Join(WriteError{Cause: io.ErrClosedPipe}, try.CloseError{Cause: io.ErrClosedPipe}), Kind: "write"},
		{Err: fmt.Errorf("wrapped: %w", HandlerError{Cause: io.EOF}), Kind: "handler"},
		{Err: errors.New("mystery"), Kind: "unknown"},
	}

	for _, testCase := range testCases {
		name := "nil"
		if testCase.Err != nil {
			name = strings.ReplaceAll(testCase.Err.Error(), "\n", " ")
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, testCase.Kind, exitKind(testCase.Err))
		})
	}
}
