// File: api/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking socket abstraction consumed by the TLS state machine.

package api

import "net/netip"

// Socket is a connected, non-blocking stream socket.
// Read and Writev never block; when the kernel has nothing to give or no room
// to take they return ErrWouldBlock.
type Socket interface {
	// Fd returns the OS-level file descriptor registered with the multiplexer.
	Fd() int

	// Read reads available bytes. (0, nil) means the peer closed its side.
	Read(p []byte) (int, error)

	// Writev writes the buffers in order as one vectored write and returns
	// the number of bytes accepted by the kernel.
	Writev(bufs [][]byte) (int, error)

	// RemoteAddr returns the peer address captured at accept time.
	RemoteAddr() netip.AddrPort

	// Close releases the descriptor. Safe to call more than once.
	Close() error
}
