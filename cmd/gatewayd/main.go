// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command gatewayd serves a registered handler over the gateway protocol.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/app"
	"github.com/z5labs/gateway/appbuilder"
	"github.com/z5labs/gateway/example/hello"
	"github.com/z5labs/gateway/server"

	"github.com/spf13/cobra"
)

type builder struct {
	logOut io.Writer
}

func (b builder) Build(ctx context.Context, cfg Config) (gateway.Runtime, error) {
	h, err := hello.Lookup(cfg.Handler)
	if err != nil {
		return nil, err
	}

	srv, err := server.Listen(
		ctx,
		cfg.Server,
		h,
		server.LogHandler(cfg.logHandler(b.logOut)),
	)
	if err != nil {
		return nil, err
	}

	rt := app.Recover(srv)
	rt = app.WithSignalNotifications(rt, os.Interrupt, syscall.SIGTERM)
	return rt, nil
}

func newCommand(logOut io.Writer) *cobra.Command {
	var (
		path     string
		host     string
		port     int
		handler  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "gatewayd",
		Short: "Serve a gateway handler",
		Long: `gatewayd accepts connections, parses each request into an environment,
runs the configured handler in its own worker and writes the response.

Handlers: ` + strings.Join(hello.Names(), ", "),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags flagOverrides
			if cmd.Flags().Changed("host") {
				flags.host = &host
			}
			if cmd.Flags().Changed("port") {
				flags.port = &port
			}
			if cmd.Flags().Changed("handler") {
				flags.handler = &handler
			}
			if cmd.Flags().Changed("log-level") {
				flags.logLevel = &logLevel
			}

			b := appbuilder.Recover(appbuilder.OTel[Config](builder{logOut: logOut}))
			return gateway.Run(cmd.Context(), b, sources(path, flags)...)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&path, "config", "c", "", "yaml or json config file, may use env and default template funcs")
	fs.StringVar(&host, "host", "", "host to bind")
	fs.IntVarP(&port, "port", "p", server.DefaultPort, "port to bind, -1 picks an ephemeral port")
	fs.StringVar(&handler, "handler", "hello", "name of the handler to serve")
	fs.StringVar(&logLevel, "log-level", "INFO", "minimum log level")
	return cmd
}

func main() {
	err := newCommand(os.Stderr).ExecuteContext(context.Background())
	if err != nil {
		slog.Default().Error("failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
