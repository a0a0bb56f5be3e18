// File: pool/observer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocation observers used for memory accounting.

package pool

import (
	"errors"
	"sync/atomic"
)

// ErrBudgetExceeded is returned by BudgetObserver when a region would exceed the budget.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// AllocationObserver is consulted before a ring takes a region and told when
// it gives one back. A non-nil error from WillAllocate vetoes the allocation.
type AllocationObserver interface {
	WillAllocate(size int) error
	Deallocated(size int)
}

// BudgetObserver enforces a byte budget shared by every ring it is attached to.
type BudgetObserver struct {
	limit int64
	used  atomic.Int64
}

// NewBudgetObserver creates an observer allowing at most limit bytes in use.
func NewBudgetObserver(limit int64) *BudgetObserver {
	return &BudgetObserver{limit: limit}
}

// WillAllocate reserves size bytes or vetoes with ErrBudgetExceeded.
func (b *BudgetObserver) WillAllocate(size int) error {
	if b.used.Add(int64(size)) > b.limit {
		b.used.Add(-int64(size))
		return ErrBudgetExceeded
	}
	return nil
}

// Deallocated gives size bytes back to the budget.
func (b *BudgetObserver) Deallocated(size int) {
	b.used.Add(-int64(size))
}

// Used returns the bytes currently reserved.
func (b *BudgetObserver) Used() int64 { return b.used.Load() }

// Limit returns the configured budget.
func (b *BudgetObserver) Limit() int64 { return b.limit }

type nopObserver struct{}

func (nopObserver) WillAllocate(int) error { return nil }
func (nopObserver) Deallocated(int)        {}
