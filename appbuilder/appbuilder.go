// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder provides middleware for a [gateway.Builder].
package appbuilder

import (
	"context"

	"github.com/z5labs/gateway"
	"github.com/z5labs/gateway/config"
	"github.com/z5labs/gateway/internal/try"
)

// Recover converts a panic raised while building into a [try.PanicError].
func Recover[T any](builder gateway.Builder[T]) gateway.Builder[T] {
	return gateway.BuilderFunc[T](func(ctx context.Context, cfg T) (_ gateway.Runtime, err error) {
		defer try.Recover(&err)

		return builder.Build(ctx, cfg)
	})
}

// FromConfig adapts builder so its config is decoded from a [config.Source].
// Useful when a single builder is driven by one already merged source.
func FromConfig[T any](builder gateway.Builder[T]) gateway.Builder[config.Source] {
	return gateway.BuilderFunc[config.Source](func(ctx context.Context, src config.Source) (gateway.Runtime, error) {
		m, err := config.Read(src)
		if err != nil {
			return nil, err
		}

		var cfg T
		err = m.Unmarshal(&cfg)
		if err != nil {
			return nil, err
		}

		return builder.Build(ctx, cfg)
	})
}
