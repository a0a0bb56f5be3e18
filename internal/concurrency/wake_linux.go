//go:build linux
// +build linux

// File: internal/concurrency/wake_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Wakeup is an eventfd a sleeping reactor registers for reads so that other
// threads can interrupt its wait.
type Wakeup struct {
	fd  int
	buf [8]byte
}

// NewWakeup creates a non-blocking eventfd.
func NewWakeup() (*Wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &Wakeup{fd: fd}, nil
}

// Fd returns the descriptor to register with the multiplexer.
func (w *Wakeup) Fd() int { return w.fd }

// Wake makes the descriptor readable. Safe for concurrent use.
func (w *Wakeup) Wake() error {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, err := unix.Write(w.fd, one[:])
	if err == unix.EAGAIN {
		// Counter saturated: the reader is already due to wake.
		return nil
	}
	return err
}

// Drain resets the counter. Called only by the owning reactor thread.
func (w *Wakeup) Drain() (uint64, error) {
	n, err := unix.Read(w.fd, w.buf[:])
	if err == unix.EAGAIN {
		return 0, nil
	}
	if err != nil || n != 8 {
		return 0, err
	}
	return binary.NativeEndian.Uint64(w.buf[:]), nil
}

// Close releases the eventfd.
func (w *Wakeup) Close() error { return unix.Close(w.fd) }
