// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Response head serialisation and the static response-header catalog.

package protocol

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// HeaderCatalog appends fixed response header lines, each ending in CRLF.
type HeaderCatalog interface {
	AppendHeaders(dst []byte) []byte
}

// AppendStatusLine appends "HTTP/1.x code reason\r\n".
func AppendStatusLine(dst []byte, minor, code int) []byte {
	if minor == 0 {
		dst = append(dst, "HTTP/1.0 "...)
	} else {
		dst = append(dst, "HTTP/1.1 "...)
	}
	dst = strconv.AppendInt(dst, int64(code), 10)
	dst = append(dst, ' ')
	dst = append(dst, http.StatusText(code)...)
	return append(dst, "\r\n"...)
}

// AppendHeader appends one "name: value\r\n" line.
func AppendHeader(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, value...)
	return append(dst, "\r\n"...)
}

// AppendErrorResponse appends a complete response for a rejected request.
// The connection is always closed afterwards.
func AppendErrorResponse(dst []byte, cat HeaderCatalog, minor int, err *ScanError) []byte {
	code := err.StatusCode()
	body := http.StatusText(code)
	dst = AppendStatusLine(dst, minor, code)
	if cat != nil {
		dst = cat.AppendHeaders(dst)
	}
	dst = AppendHeader(dst, "Content-Type", "text/plain; charset=utf-8")
	dst = AppendHeader(dst, "Content-Length", strconv.Itoa(len(body)+1))
	dst = AppendHeader(dst, "Connection", "close")
	dst = append(dst, "\r\n"...)
	dst = append(dst, body...)
	return append(dst, '\n')
}

// StaticCatalog emits Server, Date and a fixed set of security headers.
// The Date line is rendered at most once per second and shared by all callers.
type StaticCatalog struct {
	fixed []byte
	now   func() time.Time
	date  atomic.Pointer[dateLine]
}

type dateLine struct {
	unix int64
	line []byte
}

// NewStaticCatalog builds a catalog announcing server as the Server header.
func NewStaticCatalog(server string) *StaticCatalog {
	c := &StaticCatalog{now: time.Now}
	if server != "" {
		c.fixed = AppendHeader(c.fixed, "Server", server)
	}
	c.fixed = AppendHeader(c.fixed, "Strict-Transport-Security", "max-age=63072000; includeSubDomains")
	c.fixed = AppendHeader(c.fixed, "X-Content-Type-Options", "nosniff")
	c.fixed = AppendHeader(c.fixed, "X-Frame-Options", "DENY")
	c.fixed = AppendHeader(c.fixed, "Referrer-Policy", "no-referrer")
	return c
}

// AppendHeaders implements HeaderCatalog.
func (c *StaticCatalog) AppendHeaders(dst []byte) []byte {
	dst = append(dst, c.fixed...)
	return append(dst, c.dateLine()...)
}

func (c *StaticCatalog) dateLine() []byte {
	now := c.now()
	sec := now.Unix()
	if d := c.date.Load(); d != nil && d.unix == sec {
		return d.line
	}
	d := &dateLine{unix: sec}
	d.line = AppendHeader(nil, "Date", now.UTC().Format(http.TimeFormat))
	c.date.Store(d)
	return d.line
}
