// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelconfig

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestExporter_UnmarshalText(t *testing.T) {
	t.Run("will return an UnknownExporterError", func(t *testing.T) {
		t.Run("if the exporter is not supported", func(t *testing.T) {
			var e Exporter
			err := e.UnmarshalText([]byte("otlp"))

			var uerr UnknownExporterError
			if !assert.ErrorAs(t, err, &uerr) {
				return
			}
			if !assert.Equal(t, "otlp", uerr.Name) {
				return
			}
		})
	})

	t.Run("will default to none", func(t *testing.T) {
		var e Exporter
		err := e.UnmarshalText(nil)
		require.NoError(t, err)
		assert.Equal(t, None, e)
	})
}

func TestConfig_TracerProvider(t *testing.T) {
	t.Run("will return a noop provider", func(t *testing.T) {
		t.Run("if traces are not exported", func(t *testing.T) {
			tp, err := Config{}.TracerProvider(context.Background())
			require.NoError(t, err)
			assert.IsType(t, tracenoop.TracerProvider{}, tp)
		})
	})

	t.Run("will write spans to the writer", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{ServiceName: "test", Traces: Stdout}.WithWriter(&out)

		tp, err := cfg.TracerProvider(context.Background())
		require.NoError(t, err)

		sdkTP, ok := tp.(*sdktrace.TracerProvider)
		require.True(t, ok)

		_, span := tp.Tracer("test").Start(context.Background(), "gateway.connection")
		span.End()

		require.NoError(t, sdkTP.Shutdown(context.Background()))
		assert.Contains(t, out.String(), "gateway.connection")
	})

	t.Run("will tag spans with the service instance", func(t *testing.T) {
		t.Run("if an instance id is configured", func(t *testing.T) {
			var out bytes.Buffer
			cfg := Config{ServiceName: "test", InstanceID: "host-1", Traces: Stdout}.WithWriter(&out)

			tp, err := cfg.TracerProvider(context.Background())
			require.NoError(t, err)

			_, span := tp.Tracer("test").Start(context.Background(), "gateway.connection")
			span.End()

			require.NoError(t, tp.(*sdktrace.TracerProvider).Shutdown(context.Background()))
			if !assert.Contains(t, out.String(), "service.instance.id") {
				return
			}
			if !assert.Contains(t, out.String(), "host-1") {
				return
			}
		})
	})
}

func TestConfig_MeterProvider(t *testing.T) {
	t.Run("will return a noop provider", func(t *testing.T) {
		t.Run("if metrics are not exported", func(t *testing.T) {
			mp, err := Config{Metrics: None}.MeterProvider(context.Background())
			require.NoError(t, err)
			assert.IsType(t, metricnoop.MeterProvider{}, mp)
		})
	})

	t.Run("will write metrics to the writer on shutdown", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{Metrics: Stdout}.WithWriter(&out)

		mp, err := cfg.MeterProvider(context.Background())
		require.NoError(t, err)

		sdkMP, ok := mp.(*sdkmetric.MeterProvider)
		require.True(t, ok)

		counter, err := mp.Meter("test").Int64Counter("gateway.connections.accepted")
		require.NoError(t, err)
		counter.Add(context.Background(), 3)

		require.NoError(t, sdkMP.Shutdown(context.Background()))
		assert.Contains(t, out.String(), "gateway.connections.accepted")
	})
}

func TestConfig_InitializeOTel(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Traces: Stdout, Metrics: Stdout}.WithWriter(&out)

	err := cfg.InitializeOTel(context.Background())
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	otel.GetTracerProvider().(*sdktrace.TracerProvider).Shutdown(context.Background())
	otel.GetMeterProvider().(*sdkmetric.MeterProvider).Shutdown(context.Background())
}
