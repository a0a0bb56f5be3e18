// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"log"
	"net/netip"
	"time"

	"github.com/momentics/hioload-tls/protocol"
)

// Option customizes server initialization.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithTLSConfig sets the TLS policy.
func WithTLSConfig(tc *tls.Config) Option {
	return func(c *Config) { c.TLS = tc }
}

// WithWorkers sets the number of reactor threads.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithDistributor selects how accepted sockets are spread over workers.
func WithDistributor(name string) Option {
	return func(c *Config) { c.Distribution = name }
}

// WithEdgeTriggered switches connection registrations to edge-triggered mode.
func WithEdgeTriggered(on bool) Option {
	return func(c *Config) { c.EdgeTriggered = on }
}

// WithCPUAffinity pins each worker thread to its own CPU.
func WithCPUAffinity(on bool) Option {
	return func(c *Config) { c.CPUAffinity = on }
}

// WithMaxConnections sets the global connection ceiling.
func WithMaxConnections(n int) Option {
	return func(c *Config) { c.MaxConnections = n }
}

// WithAllowList admits only peers inside the given prefixes.
func WithAllowList(prefixes ...netip.Prefix) Option {
	return func(c *Config) { c.AllowList = append(c.AllowList, prefixes...) }
}

// WithDenyList refuses peers inside the given prefixes.
func WithDenyList(prefixes ...netip.Prefix) Option {
	return func(c *Config) { c.DenyList = append(c.DenyList, prefixes...) }
}

// WithConstraints overrides the request-head limits.
func WithConstraints(k protocol.Constraints) Option {
	return func(c *Config) { c.Constraints = k }
}

// WithBuffers sets ring geometry.
func WithBuffers(regionSize, ringCapacity int) Option {
	return func(c *Config) {
		c.RegionSize = regionSize
		c.RingCapacity = ringCapacity
	}
}

// WithBufferBudget caps ring memory across all connections.
func WithBufferBudget(bytes int64) Option {
	return func(c *Config) { c.BufferBudget = bytes }
}

// WithWaitTimeout bounds a single multiplexer wait.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Config) { c.WaitTimeout = d }
}

// WithCatalog replaces the response header catalog.
func WithCatalog(cat protocol.HeaderCatalog) Option {
	return func(c *Config) { c.Catalog = cat }
}

// WithRequestIDHeader adds a per-request id header to every response.
func WithRequestIDHeader(name string) Option {
	return func(c *Config) { c.RequestIDHeader = name }
}

// WithLogger sets the log sink; component loggers derive from it.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
