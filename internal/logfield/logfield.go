// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package logfield provides the slog attributes shared across the gateway.
package logfield

import (
	"log/slog"
	"net"
	"time"
)

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Uint64 returns an slog.Attr for a uint64.
func Uint64(key string, n uint64) slog.Attr {
	return slog.Uint64(key, n)
}

// Int64 returns an slog.Attr for a int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// WorkerID identifies the worker handling a connection.
func WorkerID(id uint64) slog.Attr {
	return slog.Uint64("worker_id", id)
}

// RemoteAddr returns an slog.Attr for the peer of a connection.
// A nil address is logged as an empty string.
func RemoteAddr(addr net.Addr) slog.Attr {
	if addr == nil {
		return slog.String("remote_addr", "")
	}
	return slog.String("remote_addr", addr.String())
}

// Direction marks a logged wire line as inbound ("<") or outbound (">").
func Direction(inbound bool) slog.Attr {
	if inbound {
		return slog.String("direction", "<")
	}
	return slog.String("direction", ">")
}
