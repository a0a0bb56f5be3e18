package server

import (
	"errors"
	"strings"
	"testing"

	"github.com/momentics/hioload-tls/api"
)

type fixedCatalog struct{}

func (fixedCatalog) AppendHeaders(dst []byte) []byte { return append(dst, "Server: test\r\n"...) }

func TestResponseWriterClose(t *testing.T) {
	cfg := &Config{Catalog: fixedCatalog{}, RequestIDHeader: "X-Request-Id"}
	cases := []struct {
		name      string
		minor     int
		head      bool
		keepAlive bool
		want      string
	}{
		{"keep-alive 1.1", 1, false, true,
			"HTTP/1.1 201 Created\r\nServer: test\r\nX-Request-Id: r-1\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello"},
		{"close 1.1", 1, false, false,
			"HTTP/1.1 201 Created\r\nServer: test\r\nX-Request-Id: r-1\r\nContent-Type: text/plain\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"},
		{"keep-alive 1.0", 0, false, true,
			"HTTP/1.0 201 Created\r\nServer: test\r\nX-Request-Id: r-1\r\nContent-Type: text/plain\r\nContent-Length: 5\r\nConnection: keep-alive\r\n\r\nhello"},
		{"head", 1, true, true,
			"HTTP/1.1 201 Created\r\nServer: test\r\nX-Request-Id: r-1\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := []byte("prev|")
			w := newResponseWriter(&out, cfg, tc.minor, tc.head, tc.keepAlive, "r-1")
			if err := w.AddHeader("Content-Type", "text/plain"); err != nil {
				t.Fatal(err)
			}
			if err := w.WriteHeader(201); err != nil {
				t.Fatal(err)
			}
			w.WriteString("hel")
			w.Write([]byte("lo"))
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			if got := string(out); got != "prev|"+tc.want {
				t.Fatalf("got %q\nwant %q", got, "prev|"+tc.want)
			}
			if _, err := w.WriteString("x"); !errors.Is(err, ErrResponseClosed) {
				t.Fatalf("write after close: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("second close: %v", err)
			}
		})
	}
}

func TestResponseWriterRejectsManagedHeaders(t *testing.T) {
	var out []byte
	w := newResponseWriter(&out, &Config{}, 1, false, true, "")
	for _, name := range []string{"content-length", "Connection", "Transfer-Encoding", "Bad Name"} {
		if err := w.AddHeader(name, "1"); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("%s: %v", name, err)
		}
	}
	if err := w.AddHeader("X-Ok", "a\r\nInjected: 1"); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("CRLF in value accepted: %v", err)
	}
	if err := w.WriteHeader(42); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("status 42: %v", err)
	}
	w.Close()
	if !strings.HasPrefix(string(out), "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("default status: %q", out)
	}
}

func TestParseContentLength(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"1234", 1234, true},
		{"", 0, false},
		{"+5", 0, false},
		{"1 2", 0, false},
		{"1234567890123456789", 0, false},
	}
	for _, tc := range cases {
		n, ok := parseContentLength([]byte(tc.in))
		if n != tc.want || ok != tc.ok {
			t.Errorf("%q: got (%d, %v), want (%d, %v)", tc.in, n, ok, tc.want, tc.ok)
		}
	}
}
