//go:build linux
// +build linux

// File: reactor/epoll_linux_test.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"errors"
	"testing"
	"time"

	"github.com/momentics/hioload-tls/api"
	"golang.org/x/sys/unix"
)

type seenEvent struct {
	token Token
	flags ReadyFlags
}

func recorder(out *[]seenEvent) Reactor {
	return ReactorFunc(func(_ *EventPoll, token Token, flags ReadyFlags) error {
		*out = append(*out, seenEvent{token, flags})
		return nil
	})
}

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func newPoll(t *testing.T, opts ...Option) *EventPoll {
	t.Helper()
	ep, err := NewEventPoll(opts...)
	if err != nil {
		t.Fatalf("NewEventPoll: %v", err)
	}
	t.Cleanup(func() { ep.Close() })
	return ep
}

func TestEventPoll_DispatchesToken(t *testing.T) {
	ep := newPoll(t)
	r, w := newPipe(t)
	tok := Token(0xdeadbeef_00000042)
	if err := ep.Add(r, api.Readable, tok); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var seen []seenEvent
	if err := ep.Wait(time.Second, recorder(&seen)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected 1 event, got %d", len(seen))
	}
	if seen[0].token != tok {
		t.Errorf("token = %#x, want %#x", seen[0].token, tok)
	}
	if !seen[0].flags.Readable() {
		t.Errorf("flags = %v, want readable", seen[0].flags)
	}
}

func TestEventPoll_ModifyIsIdempotent(t *testing.T) {
	once := newPoll(t)
	twice := newPoll(t)
	r, w := newPipe(t)
	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, ep := range []*EventPoll{once, twice} {
		if err := ep.Add(r, 0, 7); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := once.Modify(r, api.Readable, 9); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := twice.Modify(r, api.Readable, 9); err != nil {
			t.Fatalf("Modify #%d: %v", i, err)
		}
	}

	var a, b []seenEvent
	if err := once.Wait(time.Second, recorder(&a)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := twice.Wait(time.Second, recorder(&b)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("registrations differ: once=%v twice=%v", a, b)
	}
}

func TestEventPoll_EmptyInterestReportsNothing(t *testing.T) {
	ep := newPoll(t)
	r, w := newPipe(t)
	if err := ep.Add(r, api.Readable, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ep.Modify(r, 0, 1); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var seen []seenEvent
	if err := ep.Wait(20*time.Millisecond, recorder(&seen)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("expected no events, got %v", seen)
	}
}

func TestEventPoll_DeleteToleratesGoneDescriptor(t *testing.T) {
	ep := newPoll(t)
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	defer unix.Close(p[1])
	if err := ep.Add(p[0], api.Readable, 3); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ep.Delete(p[0]); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := ep.Delete(p[0]); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	unix.Close(p[0])
	if err := ep.Delete(p[0]); err != nil {
		t.Fatalf("Delete after close: %v", err)
	}
}

func TestEventPoll_ReactErrorAbortsBatch(t *testing.T) {
	ep := newPoll(t)
	r1, w1 := newPipe(t)
	r2, w2 := newPipe(t)
	for i, fd := range []int{r1, r2} {
		if err := ep.Add(fd, api.Readable, Token(i+1)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	unix.Write(w1, []byte("a"))
	unix.Write(w2, []byte("b"))
	// Give the kernel a chance to mark both ready.
	time.Sleep(5 * time.Millisecond)

	boom := errors.New("boom")
	calls := 0
	err := ep.Wait(time.Second, ReactorFunc(func(*EventPoll, Token, ReadyFlags) error {
		calls++
		return boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("Wait error = %v, want boom", err)
	}
	if calls != 1 {
		t.Fatalf("React called %d times, want 1", calls)
	}
}

func TestEventPoll_TimeoutIsNotAnError(t *testing.T) {
	ep := newPoll(t)
	var seen []seenEvent
	if err := ep.Wait(5*time.Millisecond, recorder(&seen)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("unexpected events %v", seen)
	}
}

func TestEventPoll_EdgeTriggeredReportsOnce(t *testing.T) {
	ep := newPoll(t, WithEdgeTriggered(true))
	r, w := newPipe(t)
	if err := ep.Add(r, api.Readable, 5); err != nil {
		t.Fatalf("Add: %v", err)
	}
	unix.Write(w, []byte("x"))
	var seen []seenEvent
	ep.Wait(time.Second, recorder(&seen))
	ep.Wait(10*time.Millisecond, recorder(&seen))
	if len(seen) != 1 {
		t.Fatalf("edge-triggered poll reported %d events, want 1", len(seen))
	}
}

func TestTokenPacking(t *testing.T) {
	for _, tok := range []Token{1, 1 << 31, 1<<32 + 5, ^Token(0)} {
		var ev unix.EpollEvent
		packToken(&ev, tok)
		if got := unpackToken(&ev); got != tok {
			t.Errorf("unpack(pack(%#x)) = %#x", tok, got)
		}
	}
}

func TestWaitMillis(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{-1, -1},
		{0, 0},
		{time.Microsecond, 1},
		{999 * time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 1},
		{20 * time.Millisecond, 20},
	}
	for _, tc := range cases {
		if got := waitMillis(tc.in); got != tc.want {
			t.Errorf("waitMillis(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEventPoll_SubMillisecondWaitBlocks(t *testing.T) {
	ep := newPoll(t)
	var seen []seenEvent
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := ep.Wait(100*time.Microsecond, recorder(&seen)); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if d := time.Since(start); d < 5*time.Millisecond {
		t.Errorf("five sub-millisecond waits returned after %v", d)
	}
}
