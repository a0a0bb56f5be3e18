// File: server/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Served client: one HTTPS connection, from TLS records to GET dispatch.

package server

import (
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/pool"
	"github.com/momentics/hioload-tls/protocol"
	"github.com/momentics/hioload-tls/tlsconn"
)

// httpsClient glues a TLS connection to the request scanner. Requests are
// answered strictly in order: the next pipelined request is not scanned
// until the previous response has been handed to the TLS session.
type httpsClient struct {
	id      string
	cfg     *Config
	handler GetHandler
	metrics *serverMetrics
	log     *log.Logger

	conn    *tlsconn.Conn
	ring    *pool.VectoredBuffer
	scanner *protocol.Scanner

	// current request
	method     protocol.Method
	minor      int
	target     pool.Span
	hosts      int
	bodyLen    int64
	hasLength  bool
	keepAlive  bool
	connection []string
	fields     []protocol.HeaderField
	num        [24]byte
	seq        uint64

	out     []byte
	outOff  int
	closing bool
}

func newHTTPSClient(cfg *Config, tc *tlsconn.Config, h GetHandler, m *serverMetrics, lg *log.Logger, remote netip.AddrPort) *httpsClient {
	c := &httpsClient{
		id:      uuid.NewString(),
		cfg:     cfg,
		handler: h,
		metrics: m,
		log:     lg,
		scanner: protocol.NewScanner(cfg.Constraints, 0),
	}
	c.resetRequest()
	c.conn = tlsconn.New(tc, c, remote)
	return c
}

// ID returns the connection's correlation id.
func (c *httpsClient) ID() string { return c.id }

// Service implements api.ConnectionUser.
func (c *httpsClient) Service(sock api.Socket) (api.RegistrationState, error) {
	return c.conn.Service(sock)
}

// Release implements api.ConnectionUser.
func (c *httpsClient) Release() { c.conn.Release() }

// UsePlaintext implements tlsconn.PlaintextUser.
func (c *httpsClient) UsePlaintext(tc *tlsconn.Conn, ring *pool.VectoredBuffer) error {
	c.ring = ring
	if c.closing {
		return ring.Consume(ring.Tail())
	}
	return c.process(tc)
}

// Pending implements tlsconn.PlaintextUser.
func (c *httpsClient) Pending() bool { return c.outOff < len(c.out) }

// Flush implements tlsconn.PlaintextUser. Once the output is fully handed
// over, scanning resumes with any request already buffered.
func (c *httpsClient) Flush(tc *tlsconn.Conn) error {
	for {
		for c.outOff < len(c.out) {
			room := tc.PlaintextRoom()
			if room <= 0 {
				return nil
			}
			end := min(len(c.out), c.outOff+room)
			n, err := tc.WritePlaintext(c.out[c.outOff:end])
			c.outOff += n
			if errors.Is(err, api.ErrWouldBlock) || (err == nil && n == 0) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		c.out, c.outOff = c.out[:0], 0
		if c.closing || c.ring == nil {
			return nil
		}
		if err := c.process(tc); err != nil {
			return err
		}
		if !c.Pending() {
			return nil
		}
	}
}

func (c *httpsClient) process(tc *tlsconn.Conn) error {
	for !c.closing && !c.Pending() {
		st, err := c.scanner.Scan(c.ring, c)
		if err != nil {
			return c.reject(tc, err)
		}
		if st == protocol.NeedMore {
			if c.scanner.InBody() {
				return c.ring.Consume(c.scanner.Position())
			}
			return nil
		}
		pos := c.scanner.Position()
		if err := c.ring.Consume(pos); err != nil {
			return err
		}
		c.scanner.Reset(pos)
		keep := c.keepAlive
		c.resetRequest()
		if !keep {
			c.closing = true
			tc.CloseAfterFlush()
			return c.ring.Consume(c.ring.Tail())
		}
	}
	return nil
}

// reject answers a malformed request and closes after the answer is sent.
func (c *httpsClient) reject(tc *tlsconn.Conn, err error) error {
	se, ok := protocol.AsScanError(err)
	if !ok {
		return err
	}
	c.out = protocol.AppendErrorResponse(c.out, c.cfg.Catalog, c.minor, se)
	c.metrics.status(se.StatusCode())
	c.closing = true
	tc.CloseAfterFlush()
	return c.ring.Consume(c.ring.Tail())
}

func (c *httpsClient) resetRequest() {
	c.method = protocol.MethodUnknown
	c.minor = 1
	c.target = pool.Span{}
	c.hosts = 0
	c.bodyLen = 0
	c.hasLength = false
	c.keepAlive = false
	c.connection = c.connection[:0]
	c.fields = c.fields[:0]
}

// OnRequestLine implements protocol.RequestConsumer.
func (c *httpsClient) OnRequestLine(line protocol.RequestLine) error {
	c.method = protocol.LookupMethod(c.ring, line.Method)
	c.minor = line.Minor
	c.target = line.Target
	switch c.method {
	case protocol.MethodGet, protocol.MethodHead:
		return nil
	}
	return &protocol.ScanError{Reason: protocol.ReasonMethodNotAllowed, Detail: c.ring.String(line.Method)}
}

// OnHeader implements protocol.RequestConsumer.
func (c *httpsClient) OnHeader(f protocol.HeaderField) error {
	switch {
	case c.ring.EqualFold(f.Name, "Host"):
		c.hosts++
	case c.ring.EqualFold(f.Name, "Content-Length"):
		n, ok := parseContentLength(c.ring.Bytes(f.Value, c.num[:0]))
		if !ok || (c.hasLength && n != c.bodyLen) {
			return &protocol.ScanError{Reason: protocol.ReasonBadRequest, Detail: "invalid Content-Length"}
		}
		c.bodyLen, c.hasLength = n, true
	case c.ring.EqualFold(f.Name, "Transfer-Encoding"):
		return &protocol.ScanError{Reason: protocol.ReasonBadRequest, Detail: "Transfer-Encoding on " + c.method.String()}
	case c.ring.EqualFold(f.Name, "Connection"):
		c.connection = append(c.connection, c.ring.String(f.Value))
	}
	c.fields = append(c.fields, f)
	return nil
}

// OnHeadersFinished implements protocol.RequestConsumer. The handler runs
// here, while every span of the head is still buffered.
func (c *httpsClient) OnHeadersFinished() (int64, error) {
	if c.hosts > 1 || (c.minor == 1 && c.hosts == 0) {
		return 0, &protocol.ScanError{Reason: protocol.ReasonBadRequest, Detail: "need exactly one Host header"}
	}
	closeReq := httpguts.HeaderValuesContainsToken(c.connection, "close")
	if c.minor == 1 {
		c.keepAlive = !closeReq
	} else {
		c.keepAlive = !closeReq && httpguts.HeaderValuesContainsToken(c.connection, "keep-alive")
	}
	c.dispatch()
	return c.bodyLen, nil
}

func (c *httpsClient) dispatch() {
	c.seq++
	var rid string
	if c.cfg.RequestIDHeader != "" {
		rid = c.id + "-" + strconv.FormatUint(c.seq, 10)
	}
	head := c.method == protocol.MethodHead
	start := len(c.out)
	w := newResponseWriter(&c.out, c.cfg, c.minor, head, c.keepAlive, rid)
	target := c.ring.Bytes(c.target, nil)
	err := c.handler.UseHTTPGet(w, Headers{ring: c.ring, fields: c.fields}, target, c.conn.PeerCertificate())
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		c.log.Printf("conn %s: %s %q: handler: %v", c.id, c.method, target, err)
		c.out = c.out[:start]
		c.keepAlive = false
		w = newResponseWriter(&c.out, c.cfg, c.minor, head, false, rid)
		_ = w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.WriteString(http.StatusText(http.StatusInternalServerError) + "\n")
		_ = w.Close()
	}
	c.metrics.requests.Inc()
	c.metrics.status(w.Status())
}

// parseContentLength accepts 1 to 18 decimal digits.
func parseContentLength(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 18 {
		return 0, false
	}
	var n int64
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int64(ch-'0')
	}
	return n, true
}

var (
	_ api.ConnectionUser       = (*httpsClient)(nil)
	_ tlsconn.PlaintextUser    = (*httpsClient)(nil)
	_ protocol.RequestConsumer = (*httpsClient)(nil)
)
