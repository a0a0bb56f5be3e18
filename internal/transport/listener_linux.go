//go:build linux
// +build linux

// File: internal/transport/listener_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-tls/api"
	"golang.org/x/sys/unix"
)

// Listener is a non-blocking listening TCP socket. It holds one spare
// descriptor so that a pending connection can still be taken off the
// backlog and closed when the process runs out of descriptors.
type Listener struct {
	fd    int
	spare int
	addr  netip.AddrPort
}

// Listen binds addr ("host:port") with SO_REUSEADDR and starts listening.
func Listen(addr string, backlog int) (*Listener, error) {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	domain := unix.AF_INET
	if ap.Addr().Is6() && !ap.Addr().Is4In6() {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, toSockaddr(ap)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	spare, err := openSpare()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Listener{fd: fd, spare: spare, addr: fromSockaddr(sa)}, nil
}

func openSpare() (int, error) {
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open spare descriptor: %w", err)
	}
	return fd, nil
}

// Fd returns the listening descriptor.
func (l *Listener) Fd() int { return l.fd }

// Addr returns the bound address, with the kernel-chosen port if 0 was requested.
func (l *Listener) Addr() netip.AddrPort { return l.addr }

// Accept takes one pending connection. It returns api.ErrWouldBlock when the
// backlog is empty.
func (l *Listener) Accept() (*Socket, error) {
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return NewSocket(nfd, fromSockaddr(sa)), nil
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return nil, api.ErrWouldBlock
		case unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM:
			return nil, api.ResourceLimitError("accept", err)
		default:
			return nil, api.ReadError("accept", err)
		}
	}
}

// Shed frees the spare descriptor, accepts one pending connection, closes it
// at once and takes the spare back. The peer sees an orderly close instead
// of waiting in the backlog. Shed fails when no connection could be taken
// or the spare could not be reopened.
func (l *Listener) Shed() error {
	if l.spare < 0 {
		spare, err := openSpare()
		if err != nil {
			return api.ResourceLimitError("shed", err)
		}
		l.spare = spare
	}
	_ = unix.Close(l.spare)
	l.spare = -1
	nfd, _, aerr := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
	if aerr == nil {
		_ = unix.Close(nfd)
	}
	spare, err := openSpare()
	if err == nil {
		l.spare = spare
	}
	switch {
	case aerr == unix.EAGAIN:
		return api.ErrWouldBlock
	case aerr != nil:
		return api.ResourceLimitError("shed", aerr)
	case err != nil:
		return api.ResourceLimitError("shed", err)
	}
	return nil
}

// Close closes the listening socket and the spare descriptor.
func (l *Listener) Close() error {
	if l.spare >= 0 {
		_ = unix.Close(l.spare)
		l.spare = -1
	}
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

func toSockaddr(ap netip.AddrPort) unix.Sockaddr {
	if a := ap.Addr(); a.Is4() || a.Is4In6() || !a.IsValid() {
		sa := &unix.SockaddrInet4{Port: int(ap.Port())}
		if a.IsValid() {
			sa.Addr = a.Unmap().As4()
		}
		return sa
	}
	sa := &unix.SockaddrInet6{Port: int(ap.Port()), Addr: ap.Addr().As16()}
	return sa
}

func fromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(v.Addr), uint16(v.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(v.Addr).Unmap(), uint16(v.Port))
	}
	return netip.AddrPort{}
}

// Socketpair returns two connected non-blocking stream sockets.
func Socketpair() (*Socket, *Socket, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	return NewSocket(fds[0], netip.AddrPort{}), NewSocket(fds[1], netip.AddrPort{}), nil
}
