//go:build linux
// +build linux

// File: internal/transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net/netip"

	"github.com/momentics/hioload-tls/api"
	"golang.org/x/sys/unix"
)

// maxIovecs caps one writev call; the kernel rejects more than IOV_MAX.
const maxIovecs = 1024

// Socket is a connected non-blocking TCP socket.
type Socket struct {
	fd     int
	remote netip.AddrPort
}

// NewSocket wraps an already non-blocking connected descriptor.
func NewSocket(fd int, remote netip.AddrPort) *Socket {
	return &Socket{fd: fd, remote: remote}
}

// Fd returns the descriptor.
func (s *Socket) Fd() int { return s.fd }

// RemoteAddr returns the peer address captured at accept time.
func (s *Socket) RemoteAddr() netip.AddrPort { return s.remote }

// Read reads available bytes without blocking.
func (s *Socket) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}
	for {
		n, err := unix.Read(s.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, api.ErrWouldBlock
		default:
			return 0, api.ReadError("read", err)
		}
	}
}

// Writev writes bufs in order with a single writev(2).
func (s *Socket) Writev(bufs [][]byte) (int, error) {
	if s.fd < 0 {
		return 0, api.ErrClosed
	}
	if len(bufs) > maxIovecs {
		bufs = bufs[:maxIovecs]
	}
	for {
		n, err := unix.Writev(s.fd, bufs)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, api.ErrWouldBlock
		default:
			return 0, api.WriteError("writev", err)
		}
	}
}

// Close closes the descriptor once.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

var _ api.Socket = (*Socket)(nil)
