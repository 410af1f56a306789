// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package environ

import (
	"context"
	"net"
	"os"
	"strings"
)

// Resolver is the subset of [net.Resolver] used to find a host's
// fully qualified domain name.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Lookup resolves the SERVER_NAME for a bound host.
type Lookup struct {
	Resolver Resolver
	Hostname func() (string, error)
}

// DefaultLookup uses the system resolver and hostname.
var DefaultLookup = Lookup{
	Resolver: net.DefaultResolver,
	Hostname: os.Hostname,
}

// FQDN returns the fully qualified domain name of host. An empty or
// unspecified host stands for this machine. The first name found by
// reverse lookup which contains a dot wins, falling back to the first
// name found, and then to host itself if nothing resolves.
func (l Lookup) FQDN(ctx context.Context, host string) string {
	host = strings.TrimSpace(host)
	if isUnspecified(host) {
		name, err := l.Hostname()
		if err != nil || name == "" {
			return host
		}
		host = name
	}

	addr := host
	if net.ParseIP(host) == nil {
		addrs, err := l.Resolver.LookupHost(ctx, host)
		if err != nil || len(addrs) == 0 {
			return host
		}
		addr = addrs[0]
	}

	names, err := l.Resolver.LookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return host
	}
	for _, name := range names {
		name = strings.TrimSuffix(name, ".")
		if strings.Contains(name, ".") {
			return name
		}
	}
	return strings.TrimSuffix(names[0], ".")
}

func isUnspecified(host string) bool {
	if host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}
