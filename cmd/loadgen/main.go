// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command loadgen floods a gateway server with short lived connections.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/app"
	"github.com/z5labs/gateway/appbuilder"
	"github.com/z5labs/gateway/config"
	"github.com/z5labs/gateway/loadgen"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// isTerminal reports whether w is a terminal which can render colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// runner runs one load test and writes its report.
type runner struct {
	cfg     loadgen.Config
	log     *zap.Logger
	out     io.Writer
	colored bool
}

func (r runner) Run(ctx context.Context) error {
	rep, err := loadgen.Run(ctx, r.cfg, loadgen.Logger(r.log))

	werr := loadgen.WriteReport(r.out, rep, r.colored)
	if err != nil {
		return err
	}
	return werr
}

// flagKeys maps flags to the loadgen.Config keys they override.
var flagKeys = map[string]string{
	"addr":            "addr",
	"max-clients":     "maxClients",
	"max-conns":       "maxConns",
	"request":         "request",
	"wait-response":   "waitResponse",
	"dial-timeout":    "dialTimeout",
	"trip-after":      "tripAfter",
	"breaker-timeout": "breakerTimeout",
}

// flagSource holds only the flags given on the command line so they
// override a config file without its values being reset to defaults.
func flagSource(fs *pflag.FlagSet) config.Map {
	m := config.Map{}
	fs.Visit(func(f *pflag.Flag) {
		k, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		m[k] = f.Value.String()
	})
	return m
}

func sources(path string, fs *pflag.FlagSet) config.Source {
	var srcs []config.Source
	if path != "" {
		srcs = append(srcs, config.Decode(
			config.RenderTextTemplate(config.OpenFile(path)),
			config.FormatOf(path),
		))
	}
	return config.Merge(append(srcs, flagSource(fs))...)
}

func newCommand() *cobra.Command {
	var (
		path    string
		verbose bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Open many connections against a gateway server",
		Long: `loadgen starts --max-clients clients. Each client opens --max-conns
connections one after another, sends the request on each and disconnects,
then a summary is printed.

Flags override the keys of an optional --config yaml or json file: addr, maxClients,
maxConns, request, waitResponse, dialTimeout, tripAfter and breakerTimeout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			out := cmd.OutOrStdout()
			colored := !noColor && isTerminal(out)

			b := appbuilder.Recover(appbuilder.FromConfig[loadgen.Config](gateway.BuilderFunc[loadgen.Config](
				func(ctx context.Context, cfg loadgen.Config) (gateway.Runtime, error) {
					return runner{cfg: cfg, log: log, out: out, colored: colored}, nil
				},
			)))

			ctx := cmd.Context()
			rt, err := b.Build(ctx, sources(path, cmd.Flags()))
			if err != nil {
				return err
			}
			return app.WithSignalNotifications(rt, os.Interrupt).Run(ctx)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&path, "config", "f", "", "yaml or json config file, may use env and default template funcs")
	fs.StringP("addr", "a", "localhost:8888", "server address")
	fs.IntP("max-clients", "c", 1, "clients to run concurrently")
	fs.IntP("max-conns", "n", 1024, "connections opened by each client")
	fs.String("request", "", "raw request to send, defaults to a GET of /hello")
	fs.BoolP("wait-response", "w", false, "read every response before disconnecting")
	fs.Duration("dial-timeout", 5*time.Second, "dial and read timeout")
	fs.Uint32("trip-after", 5, "consecutive dial failures which open the circuit breaker")
	fs.Duration("breaker-timeout", 5*time.Second, "how long the circuit breaker stays open")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log connection failures")
	fs.BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func main() {
	err := newCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
