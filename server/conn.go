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
	"time"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/environ"
	"github.com/z5labs/gateway/internal/logfield"
	"github.com/z5labs/gateway/internal/try"
	"github.com/z5labs/gateway/request"
	"github.com/z5labs/gateway/response"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ReadError is returned when the request could not be read from the peer.
type ReadError struct {
	Cause error
}

// Error implements the [error] interface.
func (e ReadError) Error() string {
	return fmt.Sprintf("failed to read request: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ReadError) Unwrap() error {
	return e.Cause
}

// HandlerError wraps an error returned by a [gateway.Handler].
type HandlerError struct {
	Cause error
}

// Error implements the [error] interface.
func (e HandlerError) Error() string {
	return fmt.Sprintf("handler failed: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e HandlerError) Unwrap() error {
	return e.Cause
}

// WriteError is returned when the response could not be sent to the peer.
type WriteError struct {
	Cause error
}

// Error implements the [error] interface.
func (e WriteError) Error() string {
	return fmt.Sprintf("failed to write response: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e WriteError) Unwrap() error {
	return e.Cause
}

func exitKind(err error) string {
	var (
		perr try.PanicError
		qerr request.ParseError
		cerr response.ContractViolationError
		herr HandlerError
		rerr ReadError
		werr WriteError
		clerr try.CloseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &perr):
		return "panic"
	case errors.As(err, &qerr):
		return "parse"
	case errors.As(err, &cerr):
		return "contract_violation"
	case errors.As(err, &herr):
		return "handler"
	case errors.As(err, &rerr):
		return "read"
	case errors.As(err, &werr):
		return "write"
	case errors.As(err, &clerr):
		return "close"
	default:
		return "unknown"
	}
}

// connHandler runs the per-connection state machine:
// read, parse, build environ, invoke handler, serialize, write, close.
type connHandler struct {
	log     *slog.Logger
	tracer  trace.Tracer
	handler gateway.Handler
	srv     environ.Server
	errSink io.Writer
	now     func() time.Time

	readBufferSize int
	software       string
	headerStyle    response.HeaderStyle
	dateFormat     response.DateFormat
}

// serve owns conn and closes it exactly once on every path.
func (ch *connHandler) serve(ctx context.Context, id uint64, conn net.Conn) (err error) {
	spanCtx, span := ch.tracer.Start(
		ctx,
		"gateway.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int64("gateway.worker.id", int64(id)),
			attribute.String("gateway.remote.addr", addrString(conn.RemoteAddr())),
		),
	)
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, exitKind(err))
	}()

	c := try.CloseOnce(conn)
	defer try.Close(&err, c)
	defer try.Recover(&err)

	raw, err := ch.read(conn)
	if err != nil {
		return err
	}

	line, err := request.Parse(raw)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("http.request.method", line.Method),
		attribute.String("url.path", line.Path),
	)

	text := string(raw)
	ch.echo(spanCtx, text, true)

	env := environ.Build(
		line,
		text,
		ch.srv,
		environ.ErrorSink(ch.errSink),
		environ.Peer(conn.RemoteAddr()),
	)

	rec := response.NewRecorder(
		response.Software(ch.software),
		response.Date(ch.dateFormat),
		response.Clock(ch.now),
	)
	body, err := ch.handler.ServeGateway(env, rec.StartResponse)
	if err != nil {
		return HandlerError{Cause: err}
	}

	b, err := response.Serialize(rec, body, ch.headerStyle)
	if err != nil {
		return err
	}
	ch.echo(spanCtx, string(b), false)

	_, err = conn.Write(b)
	if err != nil {
		return WriteError{Cause: err}
	}
	return nil
}

// read performs the single bounded read a request gets. A peer which
// closes without sending anything yields an empty request.
func (ch *connHandler) read(conn net.Conn) ([]byte, error) {
	buf := make([]byte, ch.readBufferSize)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, nil
	}
	return nil, ReadError{Cause: err}
}

func (ch *connHandler) echo(ctx context.Context, text string, inbound bool) {
	if !ch.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for _, l := range request.Lines(text) {
		ch.log.DebugContext(ctx, "wire", logfield.Direction(inbound), logfield.String("line", l))
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
