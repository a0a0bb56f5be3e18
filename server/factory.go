// File: server/factory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"
	"net/netip"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/tlsconn"
)

// clientFactory creates served clients for one worker. The TLS config,
// region pool and budget are shared; the scratch read buffer is the
// worker's own.
type clientFactory struct {
	cfg     *Config
	tls     *tlsconn.Config
	handler GetHandler
	adm     *admission
	metrics *serverMetrics
	log     *log.Logger
}

// Connect implements api.ConnectionUserFactory.
func (f *clientFactory) Connect(remote netip.AddrPort) (api.ConnectionUser, error) {
	return newHTTPSClient(f.cfg, f.tls, f.handler, f.metrics, f.log, remote), nil
}

// Disconnect implements api.ConnectionUserFactory. It is called exactly
// once for every socket handed to the worker.
func (f *clientFactory) Disconnect(netip.AddrPort) {
	f.adm.Release()
	f.metrics.closed.Inc()
}

var _ api.ConnectionUserFactory = (*clientFactory)(nil)
