// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/z5labs/gateway/config"
	"github.com/z5labs/gateway/otelconfig"
	"github.com/z5labs/gateway/server"
)

//go:embed config.yaml
var defaultConfig embed.FS

// EnvPrefix marks environment variables which override config keys,
// e.g. GATEWAY_SERVER_PORT sets server.port.
const EnvPrefix = "GATEWAY_"

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (f *LogFormat) UnmarshalText(b []byte) error {
	switch v := LogFormat(strings.ToLower(string(b))); v {
	case LogText, LogJSON:
		*f = v
		return nil
	default:
		return fmt.Errorf("unknown log format: %q", string(b))
	}
}

// Config is the complete gatewayd configuration.
type Config struct {
	Server  server.Config `config:"server"`
	Handler string        `config:"handler"`

	Logging struct {
		Level  slog.Level `config:"level"`
		Format LogFormat  `config:"format"`
	} `config:"logging"`

	OTel otelconfig.Config `config:"otel"`
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
func (c Config) InitializeOTel(ctx context.Context) error {
	return c.OTel.InitializeOTel(ctx)
}

func (c Config) logHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: c.Logging.Level,
	}
	if c.Logging.Format == LogJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// flagOverrides are only set for flags given on the command line.
type flagOverrides struct {
	host     *string
	port     *int
	handler  *string
	logLevel *string
}

func (o flagOverrides) source() config.Map {
	m := config.Map{}
	srv := map[string]any{}
	if o.host != nil {
		srv["host"] = *o.host
	}
	if o.port != nil {
		srv["port"] = *o.port
	}
	if len(srv) > 0 {
		m["server"] = srv
	}
	if o.handler != nil {
		m["handler"] = *o.handler
	}
	if o.logLevel != nil {
		m["logging"] = map[string]any{"level": *o.logLevel}
	}
	return m
}

// templateFuncs are available to every config template on top of the
// renderer's own env and default funcs.
func templateFuncs() []config.RenderTextTemplateOption {
	return []config.RenderTextTemplateOption{
		config.TemplateFunc("hostname", os.Hostname),
	}
}

func fileSource(path string) config.Source {
	return config.Decode(
		config.RenderTextTemplate(config.OpenFile(path), templateFuncs()...),
		config.FormatOf(path),
	)
}

// sources lists config sources from lowest to highest precedence: the
// embedded defaults, an optional file, the environment and finally flags.
func sources(path string, flags flagOverrides) []config.Source {
	srcs := []config.Source{
		config.FromYaml(config.RenderTextTemplate(
			config.NewFileReader(defaultConfig, "config.yaml"),
			templateFuncs()...,
		)),
	}
	if path != "" {
		srcs = append(srcs, fileSource(path))
	}
	return append(srcs, config.FromEnv(EnvPrefix), flags.source())
}
