// File: server/distributor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "sync/atomic"

// Distributor chooses the worker for a freshly accepted socket.
// load(i) returns the number of connections owned by worker i.
type Distributor interface {
	Pick(n int, load func(i int) int64) int
}

// RoundRobin cycles through the workers.
type RoundRobin struct {
	next atomic.Uint64
}

// Pick implements Distributor.
func (r *RoundRobin) Pick(n int, _ func(int) int64) int {
	return int((r.next.Add(1) - 1) % uint64(n))
}

// LeastLoaded picks the worker with the fewest connections, lowest index first.
type LeastLoaded struct{}

// Pick implements Distributor.
func (LeastLoaded) Pick(n int, load func(int) int64) int {
	best, low := 0, load(0)
	for i := 1; i < n; i++ {
		if l := load(i); l < low {
			best, low = i, l
		}
	}
	return best
}

func newDistributor(name string) Distributor {
	if name == DistributionLeastLoaded {
		return LeastLoaded{}
	}
	return &RoundRobin{}
}
