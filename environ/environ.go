// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package environ builds the request environment handed to a gateway handler.
package environ

import (
	"io"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/z5labs/gateway/request"
)

// Well-known environment keys.
const (
	Version        = "gateway.version"
	URLScheme      = "gateway.url_scheme"
	Input          = "gateway.input"
	Errors         = "gateway.errors"
	Multithread    = "gateway.multithread"
	Multiprocess   = "gateway.multiprocess"
	RunOnce        = "gateway.run_once"
	RequestMethod  = "REQUEST_METHOD"
	PathInfo       = "PATH_INFO"
	ServerName     = "SERVER_NAME"
	ServerPort     = "SERVER_PORT"
	ServerProtocol = "SERVER_PROTOCOL"
	RemoteAddr     = "REMOTE_ADDR"
)

// Environ is the read-only mapping of well-known keys to values for a
// single request. The zero value is an empty environment.
type Environ struct {
	m map[string]any
}

// Lookup returns the value stored under key.
func (e Environ) Lookup(key string) (any, bool) {
	v, ok := e.m[key]
	return v, ok
}

// String returns the value stored under key if it is a string,
// otherwise "".
func (e Environ) String(key string) string {
	s, _ := e.m[key].(string)
	return s
}

// Bool returns the value stored under key if it is a bool, otherwise false.
func (e Environ) Bool(key string) bool {
	b, _ := e.m[key].(bool)
	return b
}

// Keys returns every key in sorted order.
func (e Environ) Keys() []string {
	keys := make([]string, 0, len(e.m))
	for k := range e.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of keys.
func (e Environ) Len() int {
	return len(e.m)
}

// Method returns REQUEST_METHOD.
func (e Environ) Method() string {
	return e.String(RequestMethod)
}

// Path returns PATH_INFO.
func (e Environ) Path() string {
	return e.String(PathInfo)
}

// Input returns the stream over the raw request text. It is shared by
// every call for the same Environ, so reads consume it.
func (e Environ) Input() io.Reader {
	r, ok := e.m[Input].(io.Reader)
	if !ok {
		return strings.NewReader("")
	}
	return r
}

// ErrorStream returns the sink handlers may write diagnostics to.
func (e Environ) ErrorStream() io.Writer {
	w, ok := e.m[Errors].(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

// Server identifies the listening side of a connection. It is resolved
// once when the server binds and shared by every request.
type Server struct {
	Name string
	Port int
}

type buildOptions struct {
	errors io.Writer
	peer   net.Addr
}

// Option customizes Build.
type Option func(*buildOptions)

// ErrorSink sets the writer stored under [Errors]. Defaults to [os.Stderr].
func ErrorSink(w io.Writer) Option {
	return func(bo *buildOptions) {
		bo.errors = w
	}
}

// Peer records the remote address of the connection under [RemoteAddr].
func Peer(addr net.Addr) Option {
	return func(bo *buildOptions) {
		bo.peer = addr
	}
}

// Build constructs the environment for one request from its parsed
// request line and raw text. It performs no validation and cannot fail.
func Build(line request.Line, raw string, srv Server, opts ...Option) Environ {
	bo := &buildOptions{
		errors: os.Stderr,
	}
	for _, opt := range opts {
		opt(bo)
	}

	m := map[string]any{
		Version:        [2]int{1, 0},
		URLScheme:      "http",
		Input:          strings.NewReader(raw),
		Errors:         bo.errors,
		Multithread:    false,
		Multiprocess:   false,
		RunOnce:        false,
		RequestMethod:  line.Method,
		PathInfo:       line.Path,
		ServerName:     srv.Name,
		ServerPort:     strconv.Itoa(srv.Port),
		ServerProtocol: line.Version,
		RemoteAddr:     peerHost(bo.peer),
	}
	return Environ{m: m}
}

func peerHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
