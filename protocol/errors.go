// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Structured scan failures. Each reason maps to exactly one HTTP status.

package protocol

import (
	"errors"
	"net/http"
)

// Reason classifies why a request was rejected.
type Reason uint8

const (
	ReasonBadRequest Reason = iota + 1
	ReasonMethodNotAllowed
	ReasonURITooLong
	ReasonRequestHeaderFieldsTooLarge
	ReasonHTTPVersionNotSupported
)

// StatusCode returns the HTTP status the server must answer with.
func (r Reason) StatusCode() int {
	switch r {
	case ReasonBadRequest:
		return http.StatusBadRequest
	case ReasonMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ReasonURITooLong:
		return http.StatusRequestURITooLong
	case ReasonRequestHeaderFieldsTooLarge:
		return http.StatusRequestHeaderFieldsTooLarge
	case ReasonHTTPVersionNotSupported:
		return http.StatusHTTPVersionNotSupported
	default:
		return http.StatusInternalServerError
	}
}

func (r Reason) String() string {
	return http.StatusText(r.StatusCode())
}

// ScanError is a rejected request. Detail is free text for logs only.
type ScanError struct {
	Reason Reason
	Detail string
}

func (e *ScanError) Error() string {
	if e.Detail == "" {
		return "http: " + e.Reason.String()
	}
	return "http: " + e.Reason.String() + ": " + e.Detail
}

// StatusCode returns the HTTP status mapped from the reason.
func (e *ScanError) StatusCode() int { return e.Reason.StatusCode() }

// Is matches any ScanError with the same reason, so callers can test
// errors.Is(err, ErrURITooLong) regardless of detail.
func (e *ScanError) Is(target error) bool {
	t, ok := target.(*ScanError)
	return ok && t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrBadRequest                  = &ScanError{Reason: ReasonBadRequest}
	ErrMethodNotAllowed            = &ScanError{Reason: ReasonMethodNotAllowed}
	ErrURITooLong                  = &ScanError{Reason: ReasonURITooLong}
	ErrRequestHeaderFieldsTooLarge = &ScanError{Reason: ReasonRequestHeaderFieldsTooLarge}
	ErrHTTPVersionNotSupported     = &ScanError{Reason: ReasonHTTPVersionNotSupported}
)

func badRequest(detail string) error {
	return &ScanError{Reason: ReasonBadRequest, Detail: detail}
}

func tooLarge(detail string) error {
	return &ScanError{Reason: ReasonRequestHeaderFieldsTooLarge, Detail: detail}
}

// AsScanError returns the ScanError in err's chain, if any.
func AsScanError(err error) (*ScanError, bool) {
	var se *ScanError
	ok := errors.As(err, &se)
	return se, ok
}
