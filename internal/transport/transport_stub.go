//go:build !linux
// +build !linux

// File: internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net/netip"

	"github.com/momentics/hioload-tls/api"
)

// Socket is unavailable off Linux.
type Socket struct{}

func (s *Socket) Fd() int                      { return -1 }
func (s *Socket) RemoteAddr() netip.AddrPort   { return netip.AddrPort{} }
func (s *Socket) Read([]byte) (int, error)     { return 0, api.ErrNotSupported }
func (s *Socket) Writev([][]byte) (int, error) { return 0, api.ErrNotSupported }
func (s *Socket) Close() error                 { return nil }

// Listener is unavailable off Linux.
type Listener struct{}

func Listen(string, int) (*Listener, error)  { return nil, api.ErrNotSupported }
func (l *Listener) Fd() int                  { return -1 }
func (l *Listener) Addr() netip.AddrPort     { return netip.AddrPort{} }
func (l *Listener) Accept() (*Socket, error) { return nil, api.ErrNotSupported }
func (l *Listener) Shed() error              { return api.ErrNotSupported }
func (l *Listener) Close() error             { return nil }
func Socketpair() (*Socket, *Socket, error)  { return nil, nil, api.ErrNotSupported }
