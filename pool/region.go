// File: pool/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size region pool backed by sync.Pool, with allocation accounting.

package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultRegionSize is the region size used when none is configured.
const DefaultRegionSize = 16 * 1024

// Region is one fixed-size memory region.
type Region struct {
	buf []byte
}

// Bytes returns the whole region.
func (r *Region) Bytes() []byte { return r.buf }

// Stats aggregates region allocation and reuse counters.
type Stats struct {
	Fresh int64 // regions created from scratch
	Gets  int64
	Puts  int64
	InUse int64
}

// RegionPool recycles regions of one size. Safe for concurrent use.
type RegionPool struct {
	size  int
	pool  sync.Pool
	fresh atomic.Int64
	gets  atomic.Int64
	puts  atomic.Int64
}

// NewRegionPool creates a pool of size-byte regions.
func NewRegionPool(size int) *RegionPool {
	if size <= 0 {
		size = DefaultRegionSize
	}
	p := &RegionPool{size: size}
	p.pool.New = func() any {
		p.fresh.Add(1)
		return &Region{buf: make([]byte, size)}
	}
	return p
}

// Size returns the region size in bytes.
func (p *RegionPool) Size() int { return p.size }

// Get returns a region. Its contents are unspecified.
func (p *RegionPool) Get() *Region {
	p.gets.Add(1)
	return p.pool.Get().(*Region)
}

// Put returns a region; it must not be used afterwards.
func (p *RegionPool) Put(r *Region) {
	if r == nil || len(r.buf) != p.size {
		return
	}
	p.puts.Add(1)
	p.pool.Put(r)
}

// Stats returns a snapshot of the pool counters.
func (p *RegionPool) Stats() Stats {
	gets, puts := p.gets.Load(), p.puts.Load()
	return Stats{
		Fresh: p.fresh.Load(),
		Gets:  gets,
		Puts:  puts,
		InUse: gets - puts,
	}
}
