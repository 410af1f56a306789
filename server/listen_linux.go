// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build linux

package server

import (
	"context"
	"net"
	"os"

	"github.com/z5labs/gateway/internal/try"

	"golang.org/x/sys/unix"
)

// listen creates an IPv4 stream socket with SO_REUSEADDR and listens
// with the requested backlog. net.Listen always uses somaxconn.
func listen(_ context.Context, addr string, backlog int) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	err = bindAndListen(fd, tcpAddr, backlog)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return fileListener(os.NewFile(uintptr(fd), "gateway-listener"), net.FileListener)
}

func bindAndListen(fd int, addr *net.TCPAddr, backlog int) error {
	err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err != nil {
		return os.NewSyscallError("setsockopt", err)
	}

	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	err = unix.Bind(fd, sa)
	if err != nil {
		return os.NewSyscallError("bind", err)
	}

	err = unix.Listen(fd, backlog)
	if err != nil {
		return os.NewSyscallError("listen", err)
	}
	return nil
}

// fileListener converts f with convert and always closes f, which the
// listener holds its own duplicate of. A listener is never returned
// alongside an error.
func fileListener(f *os.File, convert func(*os.File) (net.Listener, error)) (ls net.Listener, err error) {
	defer func() {
		if err == nil || ls == nil {
			return
		}
		ls.Close()
		ls = nil
	}()
	defer try.Close(&err, f)

	return convert(f)
}
