// File: protocol/constraints.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// Constraints bound what a single request head may occupy.
// A zero field disables that particular limit.
type Constraints struct {
	MaxHeaders           int // header fields per request
	MaxHeaderFieldLength int // bytes of one "name: value" line
	MaxHeaderBytes       int // request line plus all header lines
	MaxURILength         int // bytes of the request target
}

// DefaultConstraints returns limits suitable for a public-facing server.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxHeaders:           64,
		MaxHeaderFieldLength: 8 << 10,
		MaxHeaderBytes:       32 << 10,
		MaxURILength:         4 << 10,
	}
}

func exceeds(limit, n int) bool { return limit > 0 && n > limit }
