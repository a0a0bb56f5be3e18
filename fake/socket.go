// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing.
// Provides predictable, controllable behavior for the socket and
// plaintext-source contracts.

package fake

import (
	"net/netip"
	"sync"

	"github.com/momentics/hioload-tls/api"
)

// Socket is a scripted api.Socket. Reads are served from queued chunks;
// an empty queue reads as api.ErrWouldBlock unless EOF was set.
type Socket struct {
	mu       sync.Mutex
	remote   netip.AddrPort
	reads    [][]byte
	eof      bool
	readErr  error
	writeErr error
	room     int // bytes Writev accepts before would-block; < 0 unlimited
	written  []byte
	closed   bool
}

// NewSocket creates a socket with unlimited write room.
func NewSocket(remote netip.AddrPort) *Socket {
	return &Socket{remote: remote, room: -1}
}

// Feed queues bytes for Read. Each call becomes at most one read.
func (s *Socket) Feed(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, append([]byte(nil), p...))
}

// SetEOF makes Read report a closed peer once the queue is empty.
func (s *Socket) SetEOF() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eof = true
}

// SetReadError makes every Read fail with err.
func (s *Socket) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// SetWriteError makes every Writev fail with err.
func (s *Socket) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// SetWriteRoom limits how many more bytes Writev accepts; negative means unlimited.
func (s *Socket) SetWriteRoom(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = n
}

// Written returns a copy of everything accepted by Writev.
func (s *Socket) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...)
}

// Closed reports whether Close was called.
func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Fd implements api.Socket. A fake socket has no descriptor.
func (s *Socket) Fd() int { return -1 }

// RemoteAddr implements api.Socket.
func (s *Socket) RemoteAddr() netip.AddrPort { return s.remote }

// Read implements api.Socket.
func (s *Socket) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return 0, api.ErrClosed
	case s.readErr != nil:
		return 0, s.readErr
	case len(s.reads) == 0 && s.eof:
		return 0, nil
	case len(s.reads) == 0:
		return 0, api.ErrWouldBlock
	}
	n := copy(p, s.reads[0])
	if n == len(s.reads[0]) {
		s.reads = s.reads[1:]
	} else {
		s.reads[0] = s.reads[0][n:]
	}
	return n, nil
}

// Writev implements api.Socket.
func (s *Socket) Writev(bufs [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, api.ErrClosed
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	total := 0
	for _, b := range bufs {
		if s.room >= 0 && len(b) > s.room {
			b = b[:s.room]
		}
		s.written = append(s.written, b...)
		total += len(b)
		if s.room >= 0 {
			s.room -= len(b)
			if s.room == 0 {
				break
			}
		}
	}
	if total == 0 && len(bufs) > 0 {
		return 0, api.ErrWouldBlock
	}
	return total, nil
}

// Close implements api.Socket.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ api.Socket = (*Socket)(nil)
