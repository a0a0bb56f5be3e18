//go:build !linux
// +build !linux

// File: reactor/epoll_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"time"

	"github.com/momentics/hioload-tls/api"
)

// EventPoll is unavailable outside Linux.
type EventPoll struct{}

// NewEventPoll returns api.ErrNotSupported on unsupported platforms.
func NewEventPoll(opts ...Option) (*EventPoll, error) {
	_ = buildOptions(opts)
	return nil, api.ErrNotSupported
}

func (ep *EventPoll) Add(int, api.RegistrationState, Token) error    { return api.ErrNotSupported }
func (ep *EventPoll) Modify(int, api.RegistrationState, Token) error { return api.ErrNotSupported }
func (ep *EventPoll) Delete(int) error                               { return api.ErrNotSupported }
func (ep *EventPoll) Wait(time.Duration, Reactor) error              { return api.ErrNotSupported }
func (ep *EventPoll) Close() error                                   { return nil }
