// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package server accepts TCP connections and serves one request per
// connection with a [gateway.Handler].
//
// Every accepted connection is handed to its own worker goroutine which
// owns the connection until it closes it. Workers share nothing with
// each other. Terminated workers are reclaimed asynchronously by a
// reaper so the accept loop never waits on them.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/environ"
	"github.com/z5labs/gateway/internal/logfield"
	"github.com/z5labs/gateway/internal/noop"
	"github.com/z5labs/gateway/internal/otelslog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/z5labs/gateway/server"

type options struct {
	logHandler slog.Handler
	tp         trace.TracerProvider
	mp         metric.MeterProvider
	errSink    io.Writer
	lookup     environ.Lookup
	now        func() time.Time
}

// Option customizes a Server.
type Option func(*options)

// LogHandler sets the handler every server log record is sent to.
// Records are annotated with the active trace and span ids.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// TracerProvider overrides the global tracer provider.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// MeterProvider overrides the global meter provider.
func MeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.mp = mp
	}
}

// ErrorSink sets the errors stream handed to handlers. Defaults to [os.Stderr].
func ErrorSink(w io.Writer) Option {
	return func(o *options) {
		o.errSink = w
	}
}

// NameLookup sets how SERVER_NAME is resolved from the bound host.
func NameLookup(l environ.Lookup) Option {
	return func(o *options) {
		o.lookup = l
	}
}

// Clock sets the time source for Date headers.
func Clock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// BindError is returned when the listening socket could not be created.
type BindError struct {
	Addr  string
	Cause error
}

// Error implements the [error] interface.
func (e BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %s", e.Addr, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e BindError) Unwrap() error {
	return e.Cause
}

// AcceptError is returned from Run when accepting a connection fails
// for any reason other than an interrupted system call.
type AcceptError struct {
	Cause error
}

// Error implements the [error] interface.
func (e AcceptError) Error() string {
	return fmt.Sprintf("failed to accept connection: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AcceptError) Unwrap() error {
	return e.Cause
}

// Server is the Acceptor. It implements [gateway.Runtime].
type Server struct {
	log    *slog.Logger
	ls     net.Listener
	ch     *connHandler
	ins    *instruments
	reaper *reaper

	drainTimeout time.Duration

	nextID atomic.Uint64

	mu    sync.Mutex
	conns map[uint64]net.Conn
}

// Listen binds cfg.Host and cfg.Port with cfg.Backlog pending connections
// and returns a Server ready to Run.
func Listen(ctx context.Context, cfg Config, h gateway.Handler, opts ...Option) (*Server, error) {
	cfg = cfg.withDefaults()

	ls, err := listen(ctx, cfg.Addr(), cfg.Backlog)
	if err != nil {
		return nil, BindError{Addr: cfg.Addr(), Cause: err}
	}

	s, err := New(ctx, ls, cfg, h, opts...)
	if err != nil {
		ls.Close()
		return nil, err
	}
	return s, nil
}

// New returns a Server which accepts from ls. The Server takes
// ownership of ls and closes it when Run returns.
func New(ctx context.Context, ls net.Listener, cfg Config, h gateway.Handler, opts ...Option) (*Server, error) {
	cfg = cfg.withDefaults()

	o := &options{
		logHandler: noop.LogHandler{},
		tp:         otel.GetTracerProvider(),
		mp:         otel.GetMeterProvider(),
		errSink:    os.Stderr,
		lookup:     environ.DefaultLookup,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	ins, err := newInstruments(o.mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if addr, ok := ls.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	srv := environ.Server{
		Name: o.lookup.FQDN(ctx, cfg.Host),
		Port: port,
	}

	log := otelslog.New(o.logHandler)
	s := &Server{
		log: log,
		ls:  ls,
		ch: &connHandler{
			log:            log,
			tracer:         o.tp.Tracer(instrumentationName),
			handler:        h,
			srv:            srv,
			errSink:        o.errSink,
			now:            o.now,
			readBufferSize: cfg.ReadBufferSize,
			software:       cfg.ServerSoftware,
			headerStyle:    cfg.HeaderStyle,
			dateFormat:     cfg.DateFormat,
		},
		ins:          ins,
		reaper:       newReaper(log, ins, cfg.ReapInterval),
		drainTimeout: cfg.DrainTimeout,
		conns:        make(map[uint64]net.Conn),
	}
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.ls.Addr()
}

// Live returns the number of workers spawned but not yet reaped.
func (s *Server) Live() int64 {
	return s.reaper.live.Load()
}

// Reaped returns the number of workers reclaimed so far.
func (s *Server) Reaped() uint64 {
	return s.reaper.reaped.Load()
}

// Run accepts connections until ctx is cancelled or accept fails.
// In-flight workers are not cancelled. Run waits for the reaper to
// reclaim every one of them, but only for the configured drain timeout:
// after that the connections of workers still live are interrupted so
// their blocked reads and writes fail and the workers exit.
func (s *Server) Run(ctx context.Context) error {
	s.log.InfoContext(ctx, "serving", logfield.String("addr", addrString(s.Addr())))

	acceptDone := make(chan struct{})
	drained := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		err := s.ls.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.WarnContext(ctx, "failed to close listener", logfield.Error(err))
		}

		timer := time.NewTimer(s.drainTimeout)
		defer timer.Stop()

		select {
		case <-drained:
		case <-timer.C:
			n := s.interrupt()
			s.log.WarnContext(
				ctx,
				"drain timed out, interrupting live workers",
				logfield.Duration("drain_timeout", s.drainTimeout),
				logfield.Int("workers", n),
			)
		}
		return nil
	})
	g.Go(func() error {
		defer close(acceptDone)
		return s.serve(gctx)
	})
	g.Go(func() error {
		defer close(drained)
		s.reaper.run(ctx, acceptDone)
		return nil
	})

	err := g.Wait()
	s.log.InfoContext(ctx, "stopped", logfield.Uint64("reaped", s.Reaped()))
	return err
}

// interrupt expires the deadline of every tracked connection and
// returns how many there were. The owning workers still close them.
func (s *Server) interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, conn := range s.conns {
		err := conn.SetDeadline(now)
		if err != nil {
			s.log.Debug("failed to interrupt connection", logfield.WorkerID(id), logfield.Error(err))
		}
	}
	return len(s.conns)
}

func (s *Server) track(id uint64, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = conn
}

func (s *Server) untrack(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

func (s *Server) serve(ctx context.Context) error {
	for {
		conn, err := s.ls.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, syscall.EINTR) {
				s.log.DebugContext(ctx, "accept interrupted, retrying")
				continue
			}
			return AcceptError{Cause: err}
		}
		s.spawn(ctx, conn)
	}
}

// spawn transfers ownership of conn to a new worker. The acceptor only
// keeps it tracked so a timed out drain can interrupt it.
func (s *Server) spawn(ctx context.Context, conn net.Conn) {
	id := s.nextID.Add(1)
	s.reaper.spawned()
	s.ins.spawned(ctx)
	s.track(id, conn)

	wctx := context.WithoutCancel(ctx)
	go func() {
		start := time.Now()
		err := s.ch.serve(wctx, id, conn)
		s.untrack(id)
		s.reaper.exited(exit{
			id:      id,
			err:     err,
			elapsed: time.Since(start),
		})
	}()
}
