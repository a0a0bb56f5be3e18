// File: internal/concurrency/termination.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync"
	"sync/atomic"
)

// TerminationFlag is polled by every worker loop. Raising it never
// interrupts a syscall in flight; loops notice it on their next iteration.
type TerminationFlag struct {
	raised atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// NewTerminationFlag returns a lowered flag.
func NewTerminationFlag() *TerminationFlag {
	return &TerminationFlag{done: make(chan struct{})}
}

// Raise requests termination. Safe to call many times from any goroutine.
func (f *TerminationFlag) Raise() {
	f.once.Do(func() {
		f.raised.Store(true)
		close(f.done)
	})
}

// Raised reports whether termination was requested.
func (f *TerminationFlag) Raised() bool { return f.raised.Load() }

// Done is closed once the flag is raised.
func (f *TerminationFlag) Done() <-chan struct{} { return f.done }
