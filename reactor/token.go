// File: reactor/token.go
// Author: momentics <momentics@gmail.com>
//
// Process-wide monotonic token allocator.

package reactor

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Token identifies one registration. Tokens are never reused.
type Token uint64

// WakeToken is reserved for a worker's wake-up descriptor; NextToken never returns it.
const WakeToken Token = 0

var tokens struct {
	_    cpu.CacheLinePad
	next atomic.Uint64
	_    cpu.CacheLinePad
}

// NextToken mints a fresh token with a single atomic increment.
func NextToken() Token {
	return Token(tokens.next.Add(1))
}
