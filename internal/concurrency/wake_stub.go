//go:build !linux
// +build !linux

// File: internal/concurrency/wake_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-tls/api"

// Wakeup is unavailable off Linux.
type Wakeup struct{}

func NewWakeup() (*Wakeup, error)        { return nil, api.ErrNotSupported }
func (w *Wakeup) Fd() int                { return -1 }
func (w *Wakeup) Wake() error            { return api.ErrNotSupported }
func (w *Wakeup) Drain() (uint64, error) { return 0, api.ErrNotSupported }
func (w *Wakeup) Close() error           { return nil }
