// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-tls.
// Errors are data: every layer returns them up the call chain, nothing panics.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrWouldBlock          = errors.New("operation would block")
	ErrClosed              = errors.New("connection is closed")
	ErrNotSupported        = errors.New("operation not supported on this platform")
	ErrConnectionRefused   = errors.New("connection refused by admission policy")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrResourceExhausted   = errors.New("resource exhausted")
	ErrHandshakeIncomplete = errors.New("tls handshake not complete")
)

// ErrorKind classifies where a connection-level failure originated.
type ErrorKind int

const (
	KindRead ErrorKind = iota + 1
	KindWrite
	KindProtocol
	KindResourceLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindProtocol:
		return "protocol"
	case KindResourceLimit:
		return "resource limit"
	default:
		return "unknown"
	}
}

// Error is a tagged error carrying the failed operation and, optionally,
// the underlying system error.
type Error struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Cause)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// ReadError wraps a failed socket or engine read.
func ReadError(op string, cause error) error {
	return &Error{Kind: KindRead, Op: op, Cause: cause}
}

// WriteError wraps a failed socket or engine write.
func WriteError(op string, cause error) error {
	return &Error{Kind: KindWrite, Op: op, Cause: cause}
}

// ProtocolError wraps a protocol violation (TLS decode, malformed HTTP, overflow).
func ProtocolError(op string, cause error) error {
	return &Error{Kind: KindProtocol, Op: op, Cause: cause}
}

// ResourceLimitError wraps a refused allocation or an exhausted kernel resource.
func ResourceLimitError(op string, cause error) error {
	return &Error{Kind: KindResourceLimit, Op: op, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
