// File: api/tls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contract of the TLS record/handshake engine consumed by the connection
// state machine. The engine never touches the socket itself.

package api

import "crypto/x509"

// VectorWriter accepts a vectored write of pending ciphertext.
type VectorWriter interface {
	Writev(bufs [][]byte) (int, error)
}

// TLSSession is one server-side TLS session.
type TLSSession interface {
	// WantsRead reports that the session can accept more ciphertext.
	WantsRead() bool

	// WantsWrite reports pending ciphertext waiting for the socket.
	WantsWrite() bool

	// ProcessNewPackets feeds newly arrived ciphertext. A returned error is a
	// decode failure and fatal for the session.
	ProcessNewPackets(ciphertext []byte) error

	// ReadPlaintext drains decrypted bytes into p.
	ReadPlaintext(p []byte) (int, error)

	// PlaintextLen returns the number of decrypted bytes not yet drained.
	PlaintextLen() int

	// WritePlaintext encrypts p into the pending ciphertext. Before the
	// handshake completes it fails with ErrHandshakeIncomplete; when p does not
	// fit it writes what fits and returns ErrWouldBlock.
	WritePlaintext(p []byte) (int, error)

	// PlaintextRoom returns how many plaintext bytes WritePlaintext accepts now.
	PlaintextRoom() int

	// WriteCiphertextTo hands pending ciphertext to w as one vectored write
	// and drops what w accepted.
	WriteCiphertextTo(w VectorWriter) (int, error)

	// HandshakeComplete reports whether application data may flow.
	HandshakeComplete() bool

	// PeerClosed reports that the peer sent close_notify.
	PeerClosed() bool

	// SendCloseNotify queues a close_notify alert.
	SendCloseNotify()

	// PeerCertificate returns the verified client leaf certificate, if any.
	PeerCertificate() *x509.Certificate

	// Close stops the engine and releases its buffers.
	Close() error
}
