// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"net"
	"strconv"
	"time"

	"github.com/z5labs/gateway/response"
)

// Config holds everything the Acceptor and ConnectionHandler need.
// Zero values are replaced by the defaults listed on each field.
type Config struct {
	// Host to bind. Empty binds every interface.
	Host string `config:"host"`

	// Port to bind. Defaults to 8888. Use -1 to let the kernel pick one.
	Port int `config:"port"`

	// Backlog of pending connections. Defaults to 1024.
	Backlog int `config:"backlog"`

	// ReadBufferSize caps the single read of a request. Defaults to 1024.
	ReadBufferSize int `config:"readBufferSize"`

	// ServerSoftware is the Server header value.
	ServerSoftware string `config:"serverSoftware"`

	HeaderStyle response.HeaderStyle `config:"headerSeparator"`
	DateFormat  response.DateFormat  `config:"dateFormat"`

	// ReapInterval is the period of the reaper's sweep between
	// worker exit notifications. Defaults to 1s.
	ReapInterval time.Duration `config:"reapInterval"`

	// DrainTimeout bounds how long Run waits for live workers once it
	// has been cancelled. Workers still blocked on their connection
	// after that have it interrupted. Defaults to 10s.
	DrainTimeout time.Duration `config:"drainTimeout"`
}

const (
	DefaultPort           = 8888
	DefaultBacklog        = 1024
	DefaultReadBufferSize = 1024
	DefaultReapInterval   = time.Second
	DefaultDrainTimeout   = 10 * time.Second
)

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	switch {
	case c.Port == 0:
		c.Port = DefaultPort
	case c.Port < 0:
		c.Port = 0
	}
	if c.Backlog <= 0 {
		c.Backlog = DefaultBacklog
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.ServerSoftware == "" {
		c.ServerSoftware = response.DefaultSoftware
	}
	if c.HeaderStyle == "" {
		c.HeaderStyle = response.HeaderCompat
	}
	if c.DateFormat == "" {
		c.DateFormat = response.DateCompat
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = DefaultReapInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	return c
}

// Addr returns the host:port the Config binds.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
