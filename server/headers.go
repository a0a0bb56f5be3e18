// File: server/headers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-tls/pool"
	"github.com/momentics/hioload-tls/protocol"
)

// Headers is a read-only view of the request header fields. The fields
// point into the connection's plaintext ring and are valid only for the
// duration of the handler call.
type Headers struct {
	ring   *pool.VectoredBuffer
	fields []protocol.HeaderField
}

// Len returns the number of header fields.
func (h Headers) Len() int { return len(h.fields) }

// Name returns the i-th field name as sent by the client.
func (h Headers) Name(i int) string { return h.ring.String(h.fields[i].Name) }

// Value returns the i-th field value without surrounding whitespace.
func (h Headers) Value(i int) string { return h.ring.String(h.fields[i].Value) }

// Get returns the first value of the named field, compared case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if h.ring.EqualFold(f.Name, name) {
			return h.ring.String(f.Value), true
		}
	}
	return "", false
}

// Has reports whether the named field is present.
func (h Headers) Has(name string) bool {
	for _, f := range h.fields {
		if h.ring.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Each calls fn for every field in order until fn returns false. The
// slices alias the ring or a scratch buffer and must not be retained.
func (h Headers) Each(fn func(name, value []byte) bool) {
	// Results may alias the ring, so the scratch buffers are never reassigned.
	ns := make([]byte, 0, 64)
	vs := make([]byte, 0, 256)
	for _, f := range h.fields {
		if !fn(h.ring.Bytes(f.Name, ns), h.ring.Bytes(f.Value, vs)) {
			return
		}
	}
}
