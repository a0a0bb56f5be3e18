// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration. A validated Config is immutable and shared by
// pointer between the acceptor, every worker and every per-worker factory.

package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net/netip"
	"os"
	"runtime"
	"time"

	"github.com/momentics/hioload-tls/pool"
	"github.com/momentics/hioload-tls/protocol"
)

// Distribution names accepted by Config.Distribution.
const (
	DistributionRoundRobin  = "round-robin"
	DistributionLeastLoaded = "least-loaded"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Addr    string      // TCP bind address, e.g. "0.0.0.0:8443"
	Backlog int         // listen backlog (0 = SOMAXCONN)
	TLS     *tls.Config // certificates, versions, ciphers, client auth

	Workers       int           // reactor threads (0 = one per allowed CPU)
	Distribution  string        // round-robin or least-loaded
	CPUAffinity   bool          // pin worker i to the i-th allowed CPU
	EdgeTriggered bool          // register connections with EPOLLET
	MaxEvents     int           // events dequeued per wait
	WaitTimeout   time.Duration // upper bound of one wait, also the shutdown latency
	InboxCapacity int           // queued sockets per worker before refusal

	MaxConnections int            // global ceiling (0 = unlimited)
	AllowList      []netip.Prefix // if non-empty, only these peers are admitted
	DenyList       []netip.Prefix // always refused, checked before AllowList

	Constraints  protocol.Constraints
	RegionSize   int   // bytes per ring region
	RingCapacity int   // regions per ring
	BufferBudget int64 // bytes of ring memory across all connections (0 = unlimited)

	ServerName      string                 // Server header value
	Catalog         protocol.HeaderCatalog // overrides the static catalog built from ServerName
	RequestIDHeader string                 // if set, every response carries a request id under this name

	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:          "0.0.0.0:8443",
		Distribution:  DistributionRoundRobin,
		MaxEvents:     256,
		WaitTimeout:   100 * time.Millisecond,
		InboxCapacity: 1024,
		Constraints:   protocol.DefaultConstraints(),
		RegionSize:    pool.DefaultRegionSize,
		RingCapacity:  pool.DefaultRingCapacity,
		ServerName:    "hioload-tls",
		Logger:        log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// Validate fills zero values with defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.TLS == nil || (len(c.TLS.Certificates) == 0 && c.TLS.GetCertificate == nil && c.TLS.GetConfigForClient == nil) {
		return errors.New("server: TLS config with a certificate is required")
	}
	if _, err := netip.ParseAddrPort(c.Addr); err != nil {
		return fmt.Errorf("server: bad listen address %q: %w", c.Addr, err)
	}
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	switch c.Distribution {
	case "":
		c.Distribution = def.Distribution
	case DistributionRoundRobin, DistributionLeastLoaded:
	default:
		return fmt.Errorf("server: unknown distribution %q", c.Distribution)
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = def.MaxEvents
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = def.WaitTimeout
	}
	if c.InboxCapacity <= 0 {
		c.InboxCapacity = def.InboxCapacity
	}
	if c.Constraints == (protocol.Constraints{}) {
		c.Constraints = def.Constraints
	}
	if c.RegionSize <= 0 {
		c.RegionSize = def.RegionSize
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = def.RingCapacity
	}
	if c.RingCapacity < 2 {
		return errors.New("server: ring capacity must be at least 2 regions")
	}
	if ring := c.RingCapacity * c.RegionSize; c.Constraints.MaxHeaderBytes > ring {
		return fmt.Errorf("server: MaxHeaderBytes %d exceeds ring size %d", c.Constraints.MaxHeaderBytes, ring)
	}
	if c.MaxConnections < 0 || c.BufferBudget < 0 {
		return errors.New("server: limits must not be negative")
	}
	if c.Catalog == nil {
		c.Catalog = protocol.NewStaticCatalog(c.ServerName)
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return nil
}

// componentLogger derives a prefixed logger sharing the configured sink.
func (c *Config) componentLogger(name string) *log.Logger {
	return log.New(c.Logger.Writer(), "["+name+"] ", c.Logger.Flags())
}
