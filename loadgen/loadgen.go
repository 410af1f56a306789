// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package loadgen opens many short lived connections against a gateway
// server to check that it keeps up and reclaims its workers.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config describes one load run.
type Config struct {
	// Addr of the server. Defaults to localhost:8888.
	Addr string `config:"addr"`

	// MaxClients run concurrently. Defaults to 1.
	MaxClients int `config:"maxClients"`

	// MaxConns each client opens, one after another. Defaults to 1024.
	MaxConns int `config:"maxConns"`

	// Request is sent on every connection. Defaults to a GET of /hello.
	Request string `config:"request"`

	// WaitResponse reads each response to EOF before disconnecting.
	// Otherwise a client disconnects as soon as the request is sent.
	WaitResponse bool `config:"waitResponse"`

	DialTimeout time.Duration `config:"dialTimeout"`

	// TripAfter consecutive dial failures open the dial circuit breaker
	// for BreakerTimeout, failing dials fast in the meantime.
	TripAfter      uint32        `config:"tripAfter"`
	BreakerTimeout time.Duration `config:"breakerTimeout"`
}

// DefaultRequest returns the request sent when none is configured.
func DefaultRequest(addr string) string {
	return "GET /hello HTTP/1.1\nHost: " + addr + "\n\n"
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "localhost:8888"
	}
	if c.MaxClients <= 0 {
		c.MaxClients = 1
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 1024
	}
	if c.Request == "" {
		c.Request = DefaultRequest(c.Addr)
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.TripAfter == 0 {
		c.TripAfter = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 5 * time.Second
	}
	return c
}

// DialFunc opens a connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type options struct {
	log  *zap.Logger
	dial DialFunc
}

// Option customizes Run.
type Option func(*options)

// Logger sets the logger for connection failures and breaker state changes.
func Logger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Dialer replaces the dialer built from Config.DialTimeout.
func Dialer(f DialFunc) Option {
	return func(o *options) {
		o.dial = f
	}
}

// Run starts cfg.MaxClients clients which each open cfg.MaxConns
// connections one after another, send the request on every one and
// disconnect. Connection failures are counted in the Report,
// they do not stop the run. An error is only returned if ctx ends early.
func Run(ctx context.Context, cfg Config, opts ...Option) (Report, error) {
	cfg = cfg.withDefaults()

	o := &options{
		log: zap.NewNop(),
		dial: (&net.Dialer{
			Timeout: cfg.DialTimeout,
		}).DialContext,
	}
	for _, opt := range opts {
		opt(o)
	}

	r := &runner{
		cfg:  cfg,
		log:  o.log,
		dial: o.dial,
		req:  []byte(cfg.Request),
		cb:   newDialBreaker(o.log, cfg.TripAfter, cfg.BreakerTimeout),
		rec:  newRecorder(),
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for id := range cfg.MaxClients {
		g.Go(func() error {
			r.client(gctx, id)
			return nil
		})
	}
	err := g.Wait()

	rep := r.report(time.Since(start))
	if err == nil {
		err = ctx.Err()
	}
	return rep, err
}

func newDialBreaker(log *zap.Logger, tripAfter uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	log = log.Named("dial")
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dial",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				log.Error("circuit has been opened", zap.Uint32("consecutive_failures", tripAfter))
			case gobreaker.StateHalfOpen:
				log.Warn("circuit is now half open and letting a dial through")
			case gobreaker.StateClosed:
				log.Info("circuit has been closed")
			}
		},
	})
}

type runner struct {
	cfg  Config
	log  *zap.Logger
	dial DialFunc
	req  []byte
	cb   *gobreaker.CircuitBreaker
	rec  *recorder

	attempted atomic.Int64
	connected atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	responses atomic.Int64
	bytesRead atomic.Int64
}

func (r *runner) client(ctx context.Context, id int) {
	log := r.log.With(zap.Int("client", id))

	for n := range r.cfg.MaxConns {
		if ctx.Err() != nil {
			return
		}

		err := r.connect(ctx)
		if err != nil {
			log.Debug("connection failed", zap.Int("connection", n), zap.Error(err))
		}
	}
	log.Debug("client finished")
}

// connect opens one connection, sends the request on it and closes it,
// after reading the response when configured to wait for it.
func (r *runner) connect(ctx context.Context) error {
	r.attempted.Add(1)

	start := time.Now()
	v, err := r.cb.Execute(func() (any, error) {
		return r.dial(ctx, "tcp", r.cfg.Addr)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.rejected.Add(1)
		return err
	}
	if err != nil {
		r.failed.Add(1)
		return err
	}
	conn := v.(net.Conn)
	defer conn.Close()

	r.connected.Add(1)
	r.rec.connect(time.Since(start))

	_, err = conn.Write(r.req)
	if err != nil {
		r.failed.Add(1)
		return SendError{Cause: err}
	}
	if !r.cfg.WaitResponse {
		return nil
	}

	err = conn.SetReadDeadline(time.Now().Add(r.cfg.DialTimeout))
	if err != nil {
		r.failed.Add(1)
		return err
	}
	n, err := io.Copy(io.Discard, conn)
	r.bytesRead.Add(n)
	if err != nil {
		r.failed.Add(1)
		return ReceiveError{Cause: err}
	}
	if n > 0 {
		r.responses.Add(1)
		r.rec.response(time.Since(start))
	}
	return nil
}

// SendError is returned when the request could not be written.
type SendError struct {
	Cause error
}

// Error implements the [error] interface.
func (e SendError) Error() string {
	return fmt.Sprintf("failed to send request: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e SendError) Unwrap() error {
	return e.Cause
}

// ReceiveError is returned when reading the response failed.
type ReceiveError struct {
	Cause error
}

// Error implements the [error] interface.
func (e ReceiveError) Error() string {
	return fmt.Sprintf("failed to receive response: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ReceiveError) Unwrap() error {
	return e.Cause
}

func (r *runner) report(elapsed time.Duration) Report {
	return Report{
		Clients:   r.cfg.MaxClients,
		Attempted: r.attempted.Load(),
		Connected: r.connected.Load(),
		Failed:    r.failed.Load(),
		Rejected:  r.rejected.Load(),
		Responses: r.responses.Load(),
		BytesRead: r.bytesRead.Load(),
		Elapsed:   elapsed,
		Connect:   r.rec.summary(r.rec.conn),
		Response:  r.rec.summary(r.rec.resp),
	}
}

const (
	histMin     = 1
	histMax     = int64(time.Minute / time.Microsecond)
	histSigFigs = 3
)

// recorder keeps latency histograms in microseconds. Histograms are
// not safe for concurrent use so every access holds mu.
type recorder struct {
	mu   sync.Mutex
	conn *hdrhistogram.Histogram
	resp *hdrhistogram.Histogram
}

func newRecorder() *recorder {
	return &recorder{
		conn: hdrhistogram.New(histMin, histMax, histSigFigs),
		resp: hdrhistogram.New(histMin, histMax, histSigFigs),
	}
}

func clamp(d time.Duration) int64 {
	us := d.Microseconds()
	if us < histMin {
		return histMin
	}
	if us > histMax {
		return histMax
	}
	return us
}

func (rec *recorder) connect(d time.Duration) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.conn.RecordValue(clamp(d))
}

func (rec *recorder) response(d time.Duration) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.resp.RecordValue(clamp(d))
}

func (rec *recorder) summary(h *hdrhistogram.Histogram) Latency {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if h.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration {
		return time.Duration(v) * time.Microsecond
	}
	return Latency{
		Count: h.TotalCount(),
		Min:   us(h.Min()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   us(h.ValueAtQuantile(50)),
		P90:   us(h.ValueAtQuantile(90)),
		P99:   us(h.ValueAtQuantile(99)),
		Max:   us(h.Max()),
	}
}
