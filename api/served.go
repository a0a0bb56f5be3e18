// File: api/served.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Served-client contracts: the pluggable boundary between the protocol core
// and application logic.

package api

import "net/netip"

// ConnectionUser is the per-connection handler. Service is invoked once per
// readiness event; the returned state becomes the next registration.
// An empty state asks the worker to close the connection.
type ConnectionUser interface {
	Service(sock Socket) (RegistrationState, error)

	// Release frees buffers and engine state after the socket is gone.
	Release()
}

// ConnectionUserFactory creates connection users. One factory lives on each
// worker thread; Connect runs after admission checks passed, Disconnect after
// the connection has been torn down.
type ConnectionUserFactory interface {
	Connect(remote netip.AddrPort) (ConnectionUser, error)
	Disconnect(remote netip.AddrPort)
}
