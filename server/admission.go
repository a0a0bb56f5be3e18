// File: server/admission.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/momentics/hioload-tls/api"
)

// admission decides at accept time whether a peer may connect.
// Admit and Release are called from different threads.
type admission struct {
	allow []netip.Prefix
	deny  []netip.Prefix
	max   int64
	live  atomic.Int64
}

func newAdmission(cfg *Config) *admission {
	return &admission{
		allow: cfg.AllowList,
		deny:  cfg.DenyList,
		max:   int64(cfg.MaxConnections),
	}
}

// Admit reserves a connection slot for remote or explains the refusal.
func (a *admission) Admit(remote netip.AddrPort) error {
	addr := remote.Addr().Unmap()
	for _, p := range a.deny {
		if p.Contains(addr) {
			return fmt.Errorf("%w: %s is denied", api.ErrConnectionRefused, addr)
		}
	}
	if len(a.allow) > 0 {
		allowed := false
		for _, p := range a.allow {
			if p.Contains(addr) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s is not allowed", api.ErrConnectionRefused, addr)
		}
	}
	if n := a.live.Add(1); a.max > 0 && n > a.max {
		a.live.Add(-1)
		return api.ResourceLimitError("admit", fmt.Errorf("%w: connection ceiling %d reached", api.ErrResourceExhausted, a.max))
	}
	return nil
}

// Release returns a slot taken by a successful Admit.
func (a *admission) Release() { a.live.Add(-1) }

// Live returns the number of admitted connections.
func (a *admission) Live() int64 { return a.live.Load() }
