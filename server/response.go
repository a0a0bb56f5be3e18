// File: server/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/protocol"
)

// ErrResponseClosed is returned by writes after Close.
var ErrResponseClosed = errors.New("response already closed")

// ResponseWriter collects one response. The head and body are serialised
// into the connection's output on Close; the transport then flushes it in
// record-sized chunks as the ciphertext ring drains.
type ResponseWriter struct {
	minor     int
	head      bool // HEAD request: body is counted but not sent
	keepAlive bool
	requestID string
	idHeader  string
	catalog   protocol.HeaderCatalog

	status int
	header []byte
	body   []byte
	closed bool
	out    *[]byte
}

func newResponseWriter(out *[]byte, cfg *Config, minor int, head, keepAlive bool, requestID string) *ResponseWriter {
	return &ResponseWriter{
		minor:     minor,
		head:      head,
		keepAlive: keepAlive,
		requestID: requestID,
		idHeader:  cfg.RequestIDHeader,
		catalog:   cfg.Catalog,
		out:       out,
	}
}

// AddHeader appends a response header. Content-Length and Connection are
// managed by the writer and rejected here.
func (w *ResponseWriter) AddHeader(name, value string) error {
	if w.closed {
		return ErrResponseClosed
	}
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: header %q", api.ErrInvalidArgument, name)
	}
	switch http.CanonicalHeaderKey(name) {
	case "Content-Length", "Connection", "Transfer-Encoding":
		return fmt.Errorf("%w: header %q is managed by the server", api.ErrInvalidArgument, name)
	}
	w.header = protocol.AppendHeader(w.header, name, value)
	return nil
}

// WriteHeader sets the status code. The default is 200.
func (w *ResponseWriter) WriteHeader(code int) error {
	if w.closed {
		return ErrResponseClosed
	}
	if code < 100 || code > 999 {
		return fmt.Errorf("%w: status %d", api.ErrInvalidArgument, code)
	}
	w.status = code
	return nil
}

// Write appends to the response body.
func (w *ResponseWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrResponseClosed
	}
	w.body = append(w.body, p...)
	return len(p), nil
}

// WriteString appends to the response body.
func (w *ResponseWriter) WriteString(s string) (int, error) {
	if w.closed {
		return 0, ErrResponseClosed
	}
	w.body = append(w.body, s...)
	return len(s), nil
}

// Status returns the status code that will be or was sent.
func (w *ResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// ProtoMinor returns the request's HTTP/1.x minor version.
func (w *ResponseWriter) ProtoMinor() int { return w.minor }

// KeepAlive reports whether the connection stays open after this response.
func (w *ResponseWriter) KeepAlive() bool { return w.keepAlive }

// RequestID returns the correlation id of this request.
func (w *ResponseWriter) RequestID() string { return w.requestID }

// Close serialises the response into the connection output. Handlers may
// call it early; the server calls it after the handler returned.
func (w *ResponseWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	dst := protocol.AppendStatusLine(*w.out, w.minor, w.Status())
	if w.catalog != nil {
		dst = w.catalog.AppendHeaders(dst)
	}
	if w.idHeader != "" {
		dst = protocol.AppendHeader(dst, w.idHeader, w.requestID)
	}
	dst = append(dst, w.header...)
	dst = append(dst, "Content-Length: "...)
	dst = strconv.AppendInt(dst, int64(len(w.body)), 10)
	dst = append(dst, "\r\n"...)
	switch {
	case !w.keepAlive:
		dst = protocol.AppendHeader(dst, "Connection", "close")
	case w.minor == 0:
		dst = protocol.AppendHeader(dst, "Connection", "keep-alive")
	}
	dst = append(dst, "\r\n"...)
	if !w.head {
		dst = append(dst, w.body...)
	}
	*w.out = dst
	w.body = nil
	return nil
}
