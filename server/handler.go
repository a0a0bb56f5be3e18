// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/x509"
	"net/http"
)

// GetHandler serves GET and HEAD requests. It runs on a worker thread and
// must not block. target and headers alias connection buffers and are
// valid only until UseHTTPGet returns. peer is nil unless the client
// presented a verified certificate. A returned error produces a 500
// response and closes the connection.
type GetHandler interface {
	UseHTTPGet(w *ResponseWriter, headers Headers, target []byte, peer *x509.Certificate) error
}

// GetHandlerFunc adapts a function to GetHandler.
type GetHandlerFunc func(w *ResponseWriter, headers Headers, target []byte, peer *x509.Certificate) error

// UseHTTPGet calls f.
func (f GetHandlerFunc) UseHTTPGet(w *ResponseWriter, headers Headers, target []byte, peer *x509.Certificate) error {
	return f(w, headers, target, peer)
}

// StaticHandler answers every request with the same plain-text message.
type StaticHandler struct {
	Message     string
	ContentType string
}

// UseHTTPGet implements GetHandler.
func (h StaticHandler) UseHTTPGet(w *ResponseWriter, _ Headers, target []byte, _ *x509.Certificate) error {
	if len(target) == 0 || target[0] != '/' {
		return w.WriteHeader(http.StatusNotFound)
	}
	ct := h.ContentType
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	if err := w.AddHeader("Content-Type", ct); err != nil {
		return err
	}
	_, err := w.WriteString(h.Message)
	return err
}
