// File: protocol/method.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "github.com/momentics/hioload-tls/pool"

// Method is a recognised request method.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodOptions
	MethodPatch
	MethodConnect
	MethodTrace
)

var methodNames = [...]string{
	MethodUnknown: "",
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodOptions: "OPTIONS",
	MethodPatch:   "PATCH",
	MethodConnect: "CONNECT",
	MethodTrace:   "TRACE",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return ""
}

// LookupMethod recognises the method in span. Methods are case-sensitive.
func LookupMethod(buf *pool.VectoredBuffer, s pool.Span) Method {
	for m := MethodGet; int(m) < len(methodNames); m++ {
		if buf.Equal(s, methodNames[m]) {
			return m
		}
	}
	return MethodUnknown
}
