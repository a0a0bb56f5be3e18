// File: server/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"strconv"

	"github.com/momentics/hioload-tls/control"
)

// Counter names published by the server.
const (
	MetricConnAccepted = "conn.accepted"
	MetricConnRefused  = "conn.refused"
	MetricConnClosed   = "conn.closed"
	MetricConnErrors   = "conn.errors"
	MetricRequests     = "http.requests"
	MetricStaleEvents  = "reactor.stale_events"

	// Accepts refused by the kernel for lack of descriptors or memory, and
	// pending connections closed unserved because of it.
	MetricAcceptLimited = "accept.resource_limit"
	MetricConnShed      = "conn.shed"
)

// StatusMetric returns the counter name for responses with code.
func StatusMetric(code int) string { return "http.status." + strconv.Itoa(code) }

// serverMetrics caches the hot counters of one registry.
type serverMetrics struct {
	reg      *control.MetricsRegistry
	accepted *control.Counter
	refused  *control.Counter
	closed   *control.Counter
	errors   *control.Counter
	requests *control.Counter
	stale    *control.Counter
	limited  *control.Counter
	shed     *control.Counter
}

func newServerMetrics(reg *control.MetricsRegistry) *serverMetrics {
	return &serverMetrics{
		reg:      reg,
		accepted: reg.Counter(MetricConnAccepted),
		refused:  reg.Counter(MetricConnRefused),
		closed:   reg.Counter(MetricConnClosed),
		errors:   reg.Counter(MetricConnErrors),
		requests: reg.Counter(MetricRequests),
		stale:    reg.Counter(MetricStaleEvents),
		limited:  reg.Counter(MetricAcceptLimited),
		shed:     reg.Counter(MetricConnShed),
	}
}

func (m *serverMetrics) status(code int) { m.reg.Counter(StatusMetric(code)).Inc() }
