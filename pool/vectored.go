// File: pool/vectored.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// VectoredBuffer: a fixed-capacity ring of lazily allocated regions.
//
// Bytes are addressed by absolute stream positions. Position p lives in ring
// slot (p/size)%capacity at offset p%size. The live window starts at the
// first region that still holds unconsumed bytes and spans capacity regions,
// so the writer can never wrap into a region that the reader still needs.

package pool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/momentics/hioload-tls/api"
)

// DefaultRingCapacity is the default number of regions per ring.
const DefaultRingCapacity = 16

var (
	// ErrBufferLengthExceeded means the ring is full while data is still pending.
	ErrBufferLengthExceeded = errors.New("vectored buffer length exceeded")
	// ErrAllocationVetoed means the allocation observer refused a region.
	ErrAllocationVetoed = errors.New("region allocation vetoed")
	// ErrOffsetOutOfRange means an offset or position lies outside the live window.
	ErrOffsetOutOfRange = errors.New("vectored buffer offset out of range")
)

// PlaintextSource is anything a ring can drain bytes from without blocking.
type PlaintextSource interface {
	ReadPlaintext(p []byte) (int, error)
	PlaintextLen() int
}

// VectoredBuffer is owned by a single goroutine and is not safe for concurrent use.
type VectoredBuffer struct {
	src     *RegionPool
	obs     AllocationObserver
	size    int
	regions []*Region

	low  uint64 // start of the oldest region that may still be allocated
	head uint64 // first unconsumed byte
	tail uint64 // one past the last written byte
}

// NewVectoredBuffer creates a ring of capacity regions taken from src.
// A nil observer accepts every allocation.
func NewVectoredBuffer(capacity int, src *RegionPool, obs AllocationObserver) *VectoredBuffer {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	if src == nil {
		src = NewRegionPool(DefaultRegionSize)
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &VectoredBuffer{
		src:     src,
		obs:     obs,
		size:    src.Size(),
		regions: make([]*Region, capacity),
	}
}

// Capacity returns the maximum number of buffered bytes.
func (b *VectoredBuffer) Capacity() int { return len(b.regions) * b.size }

// RingCapacity returns the number of region slots.
func (b *VectoredBuffer) RingCapacity() int { return len(b.regions) }

// RegionSize returns the size of each region.
func (b *VectoredBuffer) RegionSize() int { return b.size }

// Len returns the number of written but unconsumed bytes.
func (b *VectoredBuffer) Len() int { return int(b.tail - b.head) }

// Free returns how many more bytes can be written before the ring is full.
func (b *VectoredBuffer) Free() int { return int(b.limit() - b.tail) }

// Head returns the position of the first unconsumed byte.
func (b *VectoredBuffer) Head() uint64 { return b.head }

// Tail returns the position one past the last written byte.
func (b *VectoredBuffer) Tail() uint64 { return b.tail }

// Allocated returns the number of regions currently held.
func (b *VectoredBuffer) Allocated() int {
	n := 0
	for _, r := range b.regions {
		if r != nil {
			n++
		}
	}
	return n
}

func (b *VectoredBuffer) limit() uint64 {
	return b.low + uint64(len(b.regions)*b.size)
}

func (b *VectoredBuffer) slot(pos uint64) int {
	return int((pos / uint64(b.size)) % uint64(len(b.regions)))
}

func (b *VectoredBuffer) regionEnd(pos uint64) uint64 {
	return (pos/uint64(b.size) + 1) * uint64(b.size)
}

// region returns the region backing pos, allocating it if needed.
func (b *VectoredBuffer) region(pos uint64) (*Region, error) {
	i := b.slot(pos)
	if r := b.regions[i]; r != nil {
		return r, nil
	}
	if err := b.obs.WillAllocate(b.size); err != nil {
		return nil, api.ResourceLimitError("allocate region", fmt.Errorf("%w: %w", ErrAllocationVetoed, err))
	}
	r := b.src.Get()
	b.regions[i] = r
	return r, nil
}

func (b *VectoredBuffer) free(i int) {
	if r := b.regions[i]; r != nil {
		b.regions[i] = nil
		b.src.Put(r)
		b.obs.Deallocated(b.size)
	}
}

// WritableSlice returns the contiguous free space at the tail, allocating the
// backing region on demand. Bytes written into it become visible after Commit.
func (b *VectoredBuffer) WritableSlice() ([]byte, error) {
	lim := b.limit()
	if b.tail >= lim {
		return nil, api.ProtocolError("writable slice", ErrBufferLengthExceeded)
	}
	buf, err := b.MutableAt(b.Offset(b.tail))
	if err != nil {
		return nil, err
	}
	return buf[:min(len(buf), int(lim-b.tail))], nil
}

// Commit publishes n bytes previously written into WritableSlice.
func (b *VectoredBuffer) Commit(n int) {
	if n < 0 || uint64(n) > b.limit()-b.tail {
		panic("pool: commit beyond writable space")
	}
	b.tail += uint64(n)
}

// Write appends p. It fails without writing anything if p does not fit or
// a region it needs cannot be allocated.
func (b *VectoredBuffer) Write(p []byte) (int, error) {
	if len(p) > b.Free() {
		return 0, api.ProtocolError("write", ErrBufferLengthExceeded)
	}
	if err := b.reserve(uint64(len(p))); err != nil {
		return 0, err
	}
	written := 0
	for written < len(p) {
		dst, err := b.WritableSlice()
		if err != nil {
			return written, err
		}
		n := copy(dst, p[written:])
		b.Commit(n)
		written += n
	}
	return written, nil
}

// reserve allocates every region backing the next n bytes, or none of them.
func (b *VectoredBuffer) reserve(n uint64) error {
	var scratch [DefaultRingCapacity]int
	fresh := scratch[:0]
	for pos := b.tail; pos < b.tail+n; pos = b.regionEnd(pos) {
		i := b.slot(pos)
		if b.regions[i] != nil {
			continue
		}
		if _, err := b.region(pos); err != nil {
			for _, j := range fresh {
				b.free(j)
			}
			return err
		}
		fresh = append(fresh, i)
	}
	return nil
}

// ReadFrom drains src into the ring until src is empty. Running out of room
// while src still holds bytes is reported as ErrBufferLengthExceeded.
func (b *VectoredBuffer) ReadFrom(src PlaintextSource) (int, error) {
	total := 0
	for src.PlaintextLen() > 0 {
		dst, err := b.WritableSlice()
		if err != nil {
			return total, err
		}
		n, err := src.ReadPlaintext(dst)
		b.Commit(n)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// Consume marks every byte before pos as consumed and releases regions that
// no longer hold unconsumed bytes. An empty ring gives back all its regions.
func (b *VectoredBuffer) Consume(pos uint64) error {
	if pos < b.head || pos > b.tail {
		return ErrOffsetOutOfRange
	}
	b.head = pos
	size := uint64(b.size)
	if b.head == b.tail {
		for i := range b.regions {
			b.free(i)
		}
		b.low = (b.head / size) * size
		return nil
	}
	for b.low+size <= b.head {
		b.free(b.slot(b.low))
		b.low += size
	}
	return nil
}

// Release drops all data and returns every region.
func (b *VectoredBuffer) Release() {
	for i := range b.regions {
		b.free(i)
	}
	b.head = b.tail
	b.low = (b.tail / uint64(b.size)) * uint64(b.size)
}

// Segment returns the readable bytes at pos up to the end of its region.
func (b *VectoredBuffer) Segment(pos uint64) []byte {
	if pos < b.head || pos >= b.tail {
		return nil
	}
	r := b.regions[b.slot(pos)]
	if r == nil {
		return nil
	}
	end := min(b.regionEnd(pos), b.tail)
	off := int(pos % uint64(b.size))
	return r.buf[off : off+int(end-pos)]
}

// The offset API addresses the ring by (region, byte) instead of by
// position. WritableSlice and Vectors walk the ring through it.

// Offset converts an absolute position to its ring address.
func (b *VectoredBuffer) Offset(pos uint64) VectoredBufferOffset {
	return VectoredBufferOffset{Index: b.slot(pos), Offset: int(pos % uint64(b.size))}
}

// Normalize folds an offset that ran past a region end or the ring end back
// into range.
func (b *VectoredBuffer) Normalize(off VectoredBufferOffset) VectoredBufferOffset {
	c := len(b.regions)
	if off.Offset < 0 || off.Index < 0 {
		return VectoredBufferOffset{Index: -1, Offset: -1}
	}
	off.Index += off.Offset / b.size
	off.Offset %= b.size
	off.Index %= c
	return off
}

// Position maps an offset to the unique absolute position it addresses
// inside the live window.
func (b *VectoredBuffer) Position(off VectoredBufferOffset) (uint64, error) {
	c := len(b.regions)
	if off.Index < 0 || off.Index >= c || off.Offset < 0 || off.Offset >= b.size {
		return 0, ErrOffsetOutOfRange
	}
	d := (off.Index - b.slot(b.low) + c) % c
	return b.low + uint64(d*b.size+off.Offset), nil
}

// At returns a read-only view of the written bytes from off to the end of its
// region. Callers must not modify the returned slice.
func (b *VectoredBuffer) At(off VectoredBufferOffset) ([]byte, error) {
	pos, err := b.Position(off)
	if err != nil {
		return nil, err
	}
	if pos < b.head || pos >= b.tail {
		return nil, ErrOffsetOutOfRange
	}
	return b.Segment(pos), nil
}

// MutableAt returns a writable view from off to the end of its region,
// covering both unconsumed and not yet committed bytes. The backing region is
// allocated on demand.
func (b *VectoredBuffer) MutableAt(off VectoredBufferOffset) ([]byte, error) {
	pos, err := b.Position(off)
	if err != nil {
		return nil, err
	}
	if pos < b.head {
		return nil, ErrOffsetOutOfRange
	}
	r, err := b.region(pos)
	if err != nil {
		return nil, err
	}
	o := int(pos % uint64(b.size))
	return r.buf[o:], nil
}

// Bytes returns the bytes of span. A span inside one region is returned
// without copying; otherwise the bytes are assembled into dst.
func (b *VectoredBuffer) Bytes(s Span, dst []byte) []byte {
	if s.Empty() || s.Start < b.head || s.End > b.tail {
		return dst[:0]
	}
	if seg := b.Segment(s.Start); len(seg) >= s.Len() {
		return seg[:s.Len()]
	}
	dst = dst[:0]
	for pos := s.Start; pos < s.End; {
		seg := b.Segment(pos)
		if len(seg) == 0 {
			break
		}
		n := min(len(seg), int(s.End-pos))
		dst = append(dst, seg[:n]...)
		pos += uint64(n)
	}
	return dst
}

// String copies span out of the ring.
func (b *VectoredBuffer) String(s Span) string {
	var sb strings.Builder
	sb.Grow(s.Len())
	for pos := s.Start; pos < s.End; {
		seg := b.Segment(pos)
		if len(seg) == 0 {
			break
		}
		n := min(len(seg), int(s.End-pos))
		sb.Write(seg[:n])
		pos += uint64(n)
	}
	return sb.String()
}

// EqualFold reports whether span equals the ASCII string t, ignoring case.
func (b *VectoredBuffer) EqualFold(s Span, t string) bool {
	if s.Len() != len(t) {
		return false
	}
	i := 0
	for pos := s.Start; pos < s.End; {
		seg := b.Segment(pos)
		if len(seg) == 0 {
			return false
		}
		n := min(len(seg), int(s.End-pos))
		for _, c := range seg[:n] {
			if lower(c) != lower(t[i]) {
				return false
			}
			i++
		}
		pos += uint64(n)
	}
	return true
}

// Equal reports whether span holds exactly t.
func (b *VectoredBuffer) Equal(s Span, t string) bool {
	if s.Len() != len(t) {
		return false
	}
	i := 0
	for pos := s.Start; pos < s.End; {
		seg := b.Segment(pos)
		if len(seg) == 0 {
			return false
		}
		n := min(len(seg), int(s.End-pos))
		if string(seg[:n]) != t[i:i+n] {
			return false
		}
		i += n
		pos += uint64(n)
	}
	return true
}

// Vectors appends the unconsumed bytes to dst as one slice per region,
// ready for a vectored write.
func (b *VectoredBuffer) Vectors(dst [][]byte) [][]byte {
	off := b.Offset(b.head)
	for left := b.Len(); left > 0; {
		seg, err := b.At(off)
		if err != nil || len(seg) == 0 {
			break
		}
		dst = append(dst, seg)
		left -= len(seg)
		off = b.Normalize(VectoredBufferOffset{Index: off.Index, Offset: off.Offset + len(seg)})
	}
	return dst
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
