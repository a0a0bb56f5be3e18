package pool_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/fake"
	"github.com/momentics/hioload-tls/pool"
)

func newRing(t *testing.T, capacity, size int, obs pool.AllocationObserver) *pool.VectoredBuffer {
	t.Helper()
	return pool.NewVectoredBuffer(capacity, pool.NewRegionPool(size), obs)
}

func TestVectoredBufferLazyAllocation(t *testing.T) {
	b := newRing(t, 4, 8, nil)
	if b.Allocated() != 0 {
		t.Fatalf("expected no regions before first write, got %d", b.Allocated())
	}
	if _, err := b.Write([]byte("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if b.Allocated() != 2 {
		t.Errorf("expected 2 regions, got %d", b.Allocated())
	}
	if b.Len() != 10 || b.Free() != 22 {
		t.Errorf("len=%d free=%d", b.Len(), b.Free())
	}
}

func TestVectoredBufferLengthExceeded(t *testing.T) {
	b := newRing(t, 2, 4, nil)
	if _, err := b.Write([]byte("abcdefgh")); err != nil {
		t.Fatalf("filling write: %v", err)
	}
	_, err := b.Write([]byte("x"))
	if !errors.Is(err, pool.ErrBufferLengthExceeded) {
		t.Fatalf("expected ErrBufferLengthExceeded, got %v", err)
	}
	if api.KindOf(err) != api.KindProtocol {
		t.Errorf("expected protocol kind, got %v", api.KindOf(err))
	}
	if b.Len() != 8 {
		t.Errorf("overflow must not change contents, len=%d", b.Len())
	}
}

func TestVectoredBufferReadFromBudget(t *testing.T) {
	b := newRing(t, 2, 4, nil)
	src := fake.NewSource([]byte("0123456789"))
	n, err := b.ReadFrom(src)
	if !errors.Is(err, pool.ErrBufferLengthExceeded) {
		t.Fatalf("expected ErrBufferLengthExceeded, got %v", err)
	}
	if n != 8 {
		t.Errorf("expected 8 bytes drained, got %d", n)
	}

	b2 := newRing(t, 4, 4, nil)
	src = fake.NewSource([]byte("0123456789"))
	if n, err := b2.ReadFrom(src); err != nil || n != 10 {
		t.Fatalf("ReadFrom = %d, %v", n, err)
	}

	b3 := newRing(t, 4, 4, nil)
	src = fake.NewSource([]byte("0123456789"))
	src.Chunk = 3
	if n, err := b3.ReadFrom(src); err != nil || n != 10 {
		t.Fatalf("chunked ReadFrom = %d, %v", n, err)
	}
	if got := b3.String(pool.Span{Start: 0, End: 10}); got != "0123456789" {
		t.Fatalf("chunked contents %q", got)
	}
}

func TestVectoredBufferVeto(t *testing.T) {
	budget := pool.NewBudgetObserver(8)
	a := newRing(t, 4, 8, budget)
	if _, err := a.Write([]byte("12345678")); err != nil {
		t.Fatalf("write within budget: %v", err)
	}
	b := newRing(t, 4, 8, budget)
	_, err := b.Write([]byte("x"))
	if !errors.Is(err, pool.ErrAllocationVetoed) || !errors.Is(err, pool.ErrBudgetExceeded) {
		t.Fatalf("expected veto, got %v", err)
	}
	if api.KindOf(err) != api.KindResourceLimit {
		t.Errorf("expected resource limit kind, got %v", api.KindOf(err))
	}
	a.Release()
	if budget.Used() != 0 {
		t.Errorf("budget not returned: %d", budget.Used())
	}
	if _, err := b.Write([]byte("x")); err != nil {
		t.Errorf("write after release: %v", err)
	}
}

func TestVectoredBufferVetoMidWrite(t *testing.T) {
	budget := pool.NewBudgetObserver(8)
	b := newRing(t, 4, 4, budget)
	n, err := b.Write([]byte("0123456789"))
	if !errors.Is(err, pool.ErrAllocationVetoed) || n != 0 {
		t.Fatalf("write over budget = %d, %v", n, err)
	}
	if b.Len() != 0 || b.Allocated() != 0 || budget.Used() != 0 {
		t.Errorf("failed write left len=%d allocated=%d used=%d", b.Len(), b.Allocated(), budget.Used())
	}
	if n, err := b.Write([]byte("01234567")); err != nil || n != 8 {
		t.Fatalf("write within budget = %d, %v", n, err)
	}
}

func TestVectoredBufferConsumeReleasesRegions(t *testing.T) {
	budget := pool.NewBudgetObserver(1 << 20)
	b := newRing(t, 4, 4, budget)
	b.Write([]byte("0123456789"))
	if err := b.Consume(b.Head() + 5); err != nil {
		t.Fatal(err)
	}
	if b.Allocated() != 2 {
		t.Errorf("expected first region released, allocated=%d", b.Allocated())
	}
	if b.Free() != 16-10+4 {
		t.Errorf("free=%d", b.Free())
	}
	if err := b.Consume(b.Tail()); err != nil {
		t.Fatal(err)
	}
	if b.Allocated() != 0 || budget.Used() != 0 {
		t.Errorf("empty ring should hold nothing: allocated=%d used=%d", b.Allocated(), budget.Used())
	}
	if err := b.Consume(b.Tail() + 1); !errors.Is(err, pool.ErrOffsetOutOfRange) {
		t.Errorf("expected out of range, got %v", err)
	}
}

func TestVectoredBufferWrapsAround(t *testing.T) {
	b := newRing(t, 3, 4, nil)
	var want []byte
	for round := 0; round < 10; round++ {
		chunk := []byte{byte('a' + round), byte('b' + round), byte('c' + round), byte('d' + round), byte('e' + round)}
		if _, err := b.Write(chunk); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		want = append(want, chunk...)
		var got []byte
		for _, v := range b.Vectors(nil) {
			got = append(got, v...)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("round %d: got %q want %q", round, got, want)
		}
		b.Consume(b.Tail())
		want = want[:0]
	}
}

func TestVectoredBufferSpans(t *testing.T) {
	b := newRing(t, 8, 4, nil)
	b.Write([]byte("Host: example.com"))
	whole := pool.Span{Start: b.Head(), End: b.Tail()}
	if got := b.Bytes(whole, nil); string(got) != "Host: example.com" {
		t.Errorf("Bytes straddling regions = %q", got)
	}
	name := pool.Span{Start: b.Head(), End: b.Head() + 4}
	if !b.EqualFold(name, "HOST") || !b.Equal(name, "Host") || b.Equal(name, "host") {
		t.Error("name comparison mismatch")
	}
	value := pool.Span{Start: b.Head() + 6, End: b.Tail()}
	if b.String(value) != "example.com" {
		t.Errorf("String = %q", b.String(value))
	}
	inside := pool.Span{Start: b.Head(), End: b.Head() + 3}
	if got := b.Bytes(inside, nil); string(got) != "Hos" {
		t.Errorf("Bytes within one region = %q", got)
	}
}

func TestVectoredBufferOffsets(t *testing.T) {
	b := newRing(t, 4, 4, nil)
	b.Write([]byte("abcdefghij"))
	off := b.Offset(b.Head() + 5)
	if off.Index != 1 || off.Offset != 1 {
		t.Fatalf("offset = %v", off)
	}
	view, err := b.At(off)
	if err != nil || string(view) != "fgh" {
		t.Fatalf("At = %q, %v", view, err)
	}
	next := b.Normalize(off.Next())
	if next.Index != 2 || next.Offset != 0 {
		t.Errorf("next = %v", next)
	}
	if n := b.Normalize(pool.VectoredBufferOffset{Index: 3, Offset: 5}); n.Index != 0 || n.Offset != 1 {
		t.Errorf("normalize wrap = %v", n)
	}
	m, err := b.MutableAt(b.Offset(b.Head()))
	if err != nil {
		t.Fatal(err)
	}
	m[0] = 'A'
	if got := b.Bytes(pool.Span{Start: b.Head(), End: b.Head() + 1}, nil); string(got) != "A" {
		t.Errorf("mutation not visible: %q", got)
	}
	if _, err := b.At(pool.VectoredBufferOffset{Index: 4}); !errors.Is(err, pool.ErrOffsetOutOfRange) {
		t.Errorf("expected out of range, got %v", err)
	}
	if _, err := b.At(pool.VectoredBufferOffset{Index: 3, Offset: 0}); !errors.Is(err, pool.ErrOffsetOutOfRange) {
		t.Errorf("unwritten offset should be out of range, got %v", err)
	}

	// Vectors walks the same cursor from the head across the wrap.
	b.Consume(b.Head() + 9)
	b.Write([]byte("klmnopq"))
	var got []string
	for _, v := range b.Vectors(nil) {
		got = append(got, string(v))
	}
	if strings.Join(got, "|") != "jkl|mnop|q" {
		t.Errorf("vectors across wrap = %q", got)
	}
}

func TestRegionPoolStats(t *testing.T) {
	p := pool.NewRegionPool(64)
	r := p.Get()
	if len(r.Bytes()) != 64 {
		t.Fatalf("region size %d", len(r.Bytes()))
	}
	p.Put(r)
	st := p.Stats()
	if st.Gets != 1 || st.Puts != 1 || st.InUse != 0 {
		t.Errorf("stats = %+v", st)
	}
}
