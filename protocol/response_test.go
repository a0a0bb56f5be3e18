package protocol

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestAppendErrorResponse(t *testing.T) {
	got := string(AppendErrorResponse(nil, nil, 1, &ScanError{Reason: ReasonURITooLong}))
	if !strings.HasPrefix(got, "HTTP/1.1 414 Request URI Too Long\r\n") {
		t.Errorf("status line: %q", got)
	}
	if !strings.Contains(got, "Connection: close\r\n") {
		t.Errorf("missing Connection: close: %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\nRequest URI Too Long\n") {
		t.Errorf("body: %q", got)
	}
}

func TestStaticCatalogDateCached(t *testing.T) {
	c := NewStaticCatalog("hioload-tls")
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return now }
	first := c.AppendHeaders(nil)
	if !bytes.Contains(first, []byte("Date: Tue, 02 Jan 2024 03:04:05 GMT\r\n")) {
		t.Fatalf("date line missing: %q", first)
	}
	if !bytes.HasPrefix(first, []byte("Server: hioload-tls\r\n")) {
		t.Errorf("server line: %q", first)
	}
	cached := c.date.Load()
	now = now.Add(500 * time.Millisecond)
	c.AppendHeaders(nil)
	if c.date.Load() != cached {
		t.Error("date re-rendered within the same second")
	}
	now = now.Add(time.Second)
	if bytes.Equal(c.AppendHeaders(nil), first) {
		t.Error("date not refreshed after a second")
	}
}
