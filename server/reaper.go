// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/z5labs/gateway/internal/logfield"
)

// exit is the record a worker leaves behind when it terminates.
type exit struct {
	id      uint64
	err     error
	elapsed time.Duration
}

// reaper reclaims terminated workers. Workers never block on it: they
// append their exit record and raise a notification which coalesces
// with any notification already pending.
type reaper struct {
	log      *slog.Logger
	ins      *instruments
	interval time.Duration

	chld chan struct{}

	mu         sync.Mutex
	terminated []exit

	live   atomic.Int64
	reaped atomic.Uint64
}

func newReaper(log *slog.Logger, ins *instruments, interval time.Duration) *reaper {
	return &reaper{
		log:      log,
		ins:      ins,
		interval: interval,
		chld:     make(chan struct{}, 1),
	}
}

// spawned must be called before the worker is started.
func (r *reaper) spawned() {
	r.live.Add(1)
}

// exited is the last thing a worker does.
func (r *reaper) exited(e exit) {
	r.mu.Lock()
	r.terminated = append(r.terminated, e)
	r.mu.Unlock()

	select {
	case r.chld <- struct{}{}:
	default:
	}
}

// run reaps on every notification and sweep until acceptDone is
// closed and every spawned worker has been reclaimed.
func (r *reaper) run(ctx context.Context, acceptDone <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	done := acceptDone
	for {
		select {
		case <-r.chld:
		case <-ticker.C:
		case <-done:
			done = nil
			r.log.DebugContext(ctx, "acceptor stopped, waiting for live workers", logfield.Int64("live", r.live.Load()))
		}

		r.reapAll(ctx)
		if done == nil && r.live.Load() == 0 {
			return
		}
	}
}

// reapAll reclaims every pending exit without blocking and returns
// how many were reclaimed.
func (r *reaper) reapAll(ctx context.Context) int {
	n := 0
	for {
		r.mu.Lock()
		batch := r.terminated
		r.terminated = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, e := range batch {
			r.reap(ctx, e)
		}
		n += len(batch)
	}
}

func (r *reaper) reap(ctx context.Context, e exit) {
	r.live.Add(-1)
	r.reaped.Add(1)
	r.ins.reap(ctx, e)

	if e.err == nil {
		r.log.DebugContext(ctx, "reaped worker", logfield.WorkerID(e.id), logfield.Duration("elapsed", e.elapsed))
		return
	}
	r.log.WarnContext(
		ctx,
		"worker exited abnormally",
		logfield.WorkerID(e.id),
		logfield.Duration("elapsed", e.elapsed),
		logfield.String("kind", exitKind(e.err)),
		logfield.Error(e.err),
	)
}
