// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	accepted metric.Int64Counter
	live     metric.Int64UpDownCounter
	reaped   metric.Int64Counter
	failed   metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	accepted, aerr := meter.Int64Counter(
		"gateway.connections.accepted",
		metric.WithDescription("Connections handed to a worker."),
		metric.WithUnit("{connection}"),
	)
	live, lerr := meter.Int64UpDownCounter(
		"gateway.workers.live",
		metric.WithDescription("Workers spawned but not yet reaped."),
		metric.WithUnit("{worker}"),
	)
	reaped, rerr := meter.Int64Counter(
		"gateway.workers.reaped",
		metric.WithDescription("Workers reclaimed by the reaper."),
		metric.WithUnit("{worker}"),
	)
	failed, ferr := meter.Int64Counter(
		"gateway.workers.failed",
		metric.WithDescription("Workers which exited abnormally."),
		metric.WithUnit("{worker}"),
	)
	err := errors.Join(aerr, lerr, rerr, ferr)
	if err != nil {
		return nil, err
	}

	ins := &instruments{
		accepted: accepted,
		live:     live,
		reaped:   reaped,
		failed:   failed,
	}
	return ins, nil
}

func (ins *instruments) spawned(ctx context.Context) {
	ins.accepted.Add(ctx, 1)
	ins.live.Add(ctx, 1)
}

func (ins *instruments) reap(ctx context.Context, e exit) {
	ins.live.Add(ctx, -1)
	ins.reaped.Add(ctx, 1)
	if e.err == nil {
		return
	}
	ins.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("gateway.exit.kind", exitKind(e.err))))
}
