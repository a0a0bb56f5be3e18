//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based event poll.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hioload-tls/api"
	"golang.org/x/sys/unix"
)

// EventPoll is a thin typed wrapper over one epoll instance.
// It is owned by exactly one goroutine; only Close may race with Wait.
type EventPoll struct {
	epfd   int
	events []unix.EpollEvent
	edge   bool
}

// NewEventPoll creates a new epoll instance.
func NewEventPoll(opts ...Option) (*EventPoll, error) {
	o := buildOptions(opts)
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, ctlError("epoll create", err)
	}
	return &EventPoll{
		epfd:   epfd,
		events: make([]unix.EpollEvent, o.maxEvents),
		edge:   o.edgeTriggered,
	}, nil
}

// Add registers fd with the given interest under token.
// The caller guarantees token uniqueness.
func (ep *EventPoll) Add(fd int, interest api.RegistrationState, token Token) error {
	ev := ep.event(interest, token)
	if err := unix.EpollCtl(ep.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return ctlError("epoll ctl add", err)
	}
	return nil
}

// Modify replaces the interest of an already registered fd.
func (ep *EventPoll) Modify(fd int, interest api.RegistrationState, token Token) error {
	ev := ep.event(interest, token)
	if err := unix.EpollCtl(ep.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return ctlError("epoll ctl mod", err)
	}
	return nil
}

// Delete unregisters fd. Deleting a descriptor that is already gone is not an error.
func (ep *EventPoll) Delete(fd int) error {
	err := unix.EpollCtl(ep.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == nil || errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EBADF) {
		return nil
	}
	return ctlError("epoll ctl del", err)
}

// Wait blocks up to timeout (negative blocks indefinitely) and dispatches each
// ready token to r. Interrupted and timed-out waits return nil so the caller
// simply waits again. The first React error discards the rest of the batch.
func (ep *EventPoll) Wait(timeout time.Duration, r Reactor) error {
	n, err := unix.EpollWait(ep.epfd, ep.events, waitMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		ev := &ep.events[i]
		if err := r.React(ep, unpackToken(ev), readyFlags(ev.Events)); err != nil {
			return err
		}
	}
	return nil
}

// waitMillis converts a wait timeout to epoll_wait milliseconds. A positive
// timeout below one millisecond rounds up so it never becomes a busy poll.
func waitMillis(timeout time.Duration) int {
	switch {
	case timeout < 0:
		return -1
	case timeout > 0 && timeout < time.Millisecond:
		return 1
	}
	return int(timeout / time.Millisecond)
}

// Close releases the epoll descriptor.
func (ep *EventPoll) Close() error {
	return unix.Close(ep.epfd)
}

func (ep *EventPoll) event(interest api.RegistrationState, token Token) unix.EpollEvent {
	var ev unix.EpollEvent
	if interest.Readable() {
		ev.Events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest.Writable() {
		ev.Events |= unix.EPOLLOUT
	}
	if ep.edge {
		ev.Events |= unix.EPOLLET
	}
	packToken(&ev, token)
	return ev
}

// The 64-bit token lives in the epoll data word (Fd low half, Pad high half).
func packToken(ev *unix.EpollEvent, t Token) {
	ev.Fd = int32(uint32(t))
	ev.Pad = int32(uint32(t >> 32))
}

func unpackToken(ev *unix.EpollEvent) Token {
	return Token(uint32(ev.Fd)) | Token(uint32(ev.Pad))<<32
}

func readyFlags(events uint32) ReadyFlags {
	var f ReadyFlags
	if events&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		f |= FlagReadable
	}
	if events&unix.EPOLLOUT != 0 {
		f |= FlagWritable
	}
	if events&unix.EPOLLERR != 0 {
		f |= FlagError
	}
	if events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		f |= FlagHangUp
	}
	return f
}

func ctlError(op string, err error) error {
	if errors.Is(err, unix.ENOMEM) || errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EMFILE) {
		return api.ResourceLimitError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
