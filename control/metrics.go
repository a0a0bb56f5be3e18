// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for connection and protocol telemetry.

package control

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically updated int64 metric.
type Counter struct {
	v atomic.Int64
}

// Add increments the counter by delta.
func (c *Counter) Add(delta int64) { c.v.Add(delta) }

// Inc increments the counter by one.
func (c *Counter) Inc() { c.v.Add(1) }

// Load returns the current value.
func (c *Counter) Load() int64 { return c.v.Load() }

// MetricsRegistry owns named counters.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{counters: make(map[string]*Counter)}
}

// Counter returns the counter registered under name, creating it on first use.
// Callers on hot paths should keep the returned pointer.
func (mr *MetricsRegistry) Counter(name string) *Counter {
	mr.mu.RLock()
	c, ok := mr.counters[name]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[name]; !ok {
		c = &Counter{}
		mr.counters[name] = c
	}
	return c
}

// Add increments name by delta.
func (mr *MetricsRegistry) Add(name string, delta int64) { mr.Counter(name).Add(delta) }

// GetSnapshot returns the current value of every counter.
func (mr *MetricsRegistry) GetSnapshot() map[string]int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.counters))
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}

// Names returns registered counter names in sorted order.
func (mr *MetricsRegistry) Names() []string {
	mr.mu.RLock()
	names := make([]string, 0, len(mr.counters))
	for k := range mr.counters {
		names = append(names, k)
	}
	mr.mu.RUnlock()
	sort.Strings(names)
	return names
}
