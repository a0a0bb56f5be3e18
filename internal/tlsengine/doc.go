// Package tlsengine
// Author: momentics <momentics@gmail.com>
//
// Adapts crypto/tls to the push-style TLSSession contract used by the
// connection state machine: ciphertext is pushed in, plaintext is drained
// out and pending ciphertext is exposed for vectored socket writes.
//
// crypto/tls is pull-based, so each session runs the engine on a helper
// goroutine that reads from an in-memory conn. The hand-off is strictly
// synchronous: ProcessNewPackets returns only after the engine has consumed
// every byte and parked again, so the engine never runs concurrently with the
// owning worker and never performs I/O of its own.
package tlsengine
