// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type logRecord struct {
	Message  string `json:"msg"`
	WorkerID uint64 `json:"worker_id"`
	OTel     struct {
		TraceID string `json:"trace_id"`
		SpanID  string `json:"span_id"`
	} `json:"otel"`
}

func TestHandler_Handle(t *testing.T) {
	t.Run("will not add trace id and span id", func(t *testing.T) {
		t.Run("if the context carries no span", func(t *testing.T) {
			var buf bytes.Buffer
			log := New(slog.NewJSONHandler(&buf, nil))

			log.InfoContext(context.Background(), "accepted")

			var record logRecord
			err := json.Unmarshal(buf.Bytes(), &record)
			require.NoError(t, err)
			assert.Equal(t, "accepted", record.Message)
			assert.Empty(t, record.OTel.TraceID)
			assert.Empty(t, record.OTel.SpanID)
		})
	})

	t.Run("will add trace id and span id", func(t *testing.T) {
		t.Run("if the context carries a recording span", func(t *testing.T) {
			var buf bytes.Buffer
			log := New(slog.NewJSONHandler(&buf, nil)).With(slog.Uint64("worker_id", 3))

			tp := sdktrace.NewTracerProvider(
				sdktrace.WithSyncer(tracetest.NewInMemoryExporter()),
			)
			defer tp.Shutdown(context.Background())

			ctx, span := tp.Tracer("otelslog").Start(context.Background(), "gateway.connection")
			defer span.End()
			require.True(t, span.SpanContext().IsValid())

			log.InfoContext(ctx, "accepted")

			var record logRecord
			err := json.Unmarshal(buf.Bytes(), &record)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), record.WorkerID)
			assert.Equal(t, span.SpanContext().TraceID().String(), record.OTel.TraceID)
			assert.Equal(t, span.SpanContext().SpanID().String(), record.OTel.SpanID)
		})
	})
}
