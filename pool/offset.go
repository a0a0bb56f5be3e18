// File: pool/offset.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "fmt"

// VectoredBufferOffset addresses one byte inside a ring of regions.
// Index is always below the ring capacity and Offset below the region size
// once normalised by the owning VectoredBuffer.
type VectoredBufferOffset struct {
	Index  int
	Offset int
}

// Next returns the start of the following region. Wrap-around is resolved by
// VectoredBuffer.Normalize, not by the caller.
func (o VectoredBufferOffset) Next() VectoredBufferOffset {
	return VectoredBufferOffset{Index: o.Index + 1}
}

func (o VectoredBufferOffset) String() string {
	return fmt.Sprintf("(%d,%d)", o.Index, o.Offset)
}

// Span is a half-open range [Start, End) of absolute stream positions inside a
// VectoredBuffer. It stays valid until the buffer consumes past Start.
type Span struct {
	Start uint64
	End   uint64
}

// Len returns the span length in bytes.
func (s Span) Len() int { return int(s.End - s.Start) }

// Empty reports a zero-length span.
func (s Span) Empty() bool { return s.End <= s.Start }
