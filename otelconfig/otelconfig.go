// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig builds OpenTelemetry tracer and meter providers
// from config.
package otelconfig

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Exporter names where telemetry is sent.
type Exporter string

const (
	// None discards telemetry. It is the default.
	None Exporter = "none"

	// Stdout writes human readable telemetry to a writer, os.Stdout by default.
	Stdout Exporter = "stdout"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (e *Exporter) UnmarshalText(b []byte) error {
	switch v := Exporter(b); v {
	case None, Stdout:
		*e = v
		return nil
	case "":
		*e = None
		return nil
	default:
		return UnknownExporterError{Name: string(b)}
	}
}

// UnknownExporterError is returned for an exporter name other than
// "none" or "stdout".
type UnknownExporterError struct {
	Name string
}

// Error implements the [error] interface.
func (e UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown otel exporter: %q", e.Name)
}

// Config selects an exporter per signal.
type Config struct {
	ServiceName    string        `config:"serviceName"`
	InstanceID     string        `config:"instanceId"`
	Traces         Exporter      `config:"traces"`
	Metrics        Exporter      `config:"metrics"`
	MetricInterval time.Duration `config:"metricInterval"`

	out io.Writer
}

// WithWriter returns a copy of c whose stdout exporters write to w.
func (c Config) WithWriter(w io.Writer) Config {
	c.out = w
	return c
}

func (c Config) writer() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

func (c Config) resource(ctx context.Context) (*resource.Resource, error) {
	name := c.ServiceName
	if name == "" {
		name = "gateway"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
	}
	if c.InstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(c.InstanceID))
	}
	return resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}

// TracerProvider returns a provider for the configured trace exporter.
func (c Config) TracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	if c.Traces != Stdout {
		return tracenoop.NewTracerProvider(), nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(c.writer()))
	if err != nil {
		return nil, err
	}

	res, err := c.resource(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// MeterProvider returns a provider for the configured metric exporter.
func (c Config) MeterProvider(ctx context.Context) (metric.MeterProvider, error) {
	if c.Metrics != Stdout {
		return metricnoop.NewMeterProvider(), nil
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(c.writer()))
	if err != nil {
		return nil, err
	}

	res, err := c.resource(ctx)
	if err != nil {
		return nil, err
	}

	var opts []sdkmetric.PeriodicReaderOption
	if c.MetricInterval > 0 {
		opts = append(opts, sdkmetric.WithInterval(c.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, opts...)),
		sdkmetric.WithResource(res),
	)
	return mp, nil
}

// InitializeOTel installs the configured providers and the W3C trace
// context propagator globally.
func (c Config) InitializeOTel(ctx context.Context) error {
	tp, err := c.TracerProvider(ctx)
	if err != nil {
		return err
	}

	mp, err := c.MeterProvider(ctx)
	if err != nil {
		return err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}
