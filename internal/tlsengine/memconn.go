// File: internal/tlsengine/memconn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tlsengine

import (
	"io"
	"net"
	"time"
)

// memConn is the net.Conn crypto/tls sees. Reads block the engine goroutine
// until the owner pushes ciphertext; writes land in the ciphertext ring.
type memConn struct {
	s      *Session
	local  net.Addr
	remote net.Addr
}

func (c *memConn) Read(p []byte) (int, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.in.Length() == 0 {
		if s.closed {
			return 0, io.EOF
		}
		s.parked = true
		s.cond.Broadcast()
		s.cond.Wait()
		s.parked = false
	}
	front := s.in.Peek().([]byte)
	n := copy(p, front[s.off:])
	s.off += n
	if s.off == len(front) {
		s.in.Remove()
		s.off = 0
	}
	return n, nil
}

func (c *memConn) Write(p []byte) (int, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, net.ErrClosed
	}
	return s.out.Write(p)
}

func (c *memConn) Close() error                     { return nil }
func (c *memConn) LocalAddr() net.Addr              { return c.local }
func (c *memConn) RemoteAddr() net.Addr             { return c.remote }
func (c *memConn) SetDeadline(time.Time) error      { return nil }
func (c *memConn) SetReadDeadline(time.Time) error  { return nil }
func (c *memConn) SetWriteDeadline(time.Time) error { return nil }
