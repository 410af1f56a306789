// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"
	"errors"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/app"
	"github.com/z5labs/gateway/lifecycle"

	"go.opentelemetry.io/otel"
)

// OTelInitializer is a config which can install the global tracer
// and meter providers.
type OTelInitializer interface {
	InitializeOTel(context.Context) error
}

// OTel initializes OpenTelemetry before building. The global providers
// are shut down, flushing anything buffered, once the built Runtime
// stops. If ctx carries a [lifecycle.Context] the shutdown is registered
// there, otherwise the Runtime is wrapped with [app.PostRun].
func OTel[T OTelInitializer](builder gateway.Builder[T]) gateway.Builder[T] {
	return gateway.BuilderFunc[T](func(ctx context.Context, cfg T) (gateway.Runtime, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		err := cfg.InitializeOTel(ctx)
		if err != nil {
			return nil, err
		}

		shutdown := lifecycle.MultiHook(
			tryShutdown(otel.GetTracerProvider()),
			tryShutdown(otel.GetMeterProvider()),
		)

		rt, err := builder.Build(ctx, cfg)
		if err != nil {
			return nil, errors.Join(err, shutdown.Run(ctx))
		}

		lc, ok := lifecycle.FromContext(ctx)
		if !ok {
			return app.PostRun(rt, shutdown), nil
		}
		lc.OnPostRun(shutdown)
		return rt, nil
	})
}

type shutdowner interface {
	Shutdown(context.Context) error
}

func tryShutdown(v any) lifecycle.HookFunc {
	return func(ctx context.Context) error {
		s, ok := v.(shutdowner)
		if !ok {
			return nil
		}
		return s.Shutdown(ctx)
	}
}
