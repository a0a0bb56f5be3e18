package protocol_test

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strconv"
	"testing"

	"github.com/momentics/hioload-tls/pool"
	"github.com/momentics/hioload-tls/protocol"
)

type recorded struct {
	Method  string
	Target  string
	Minor   int
	Headers []string
}

type recorder struct {
	buf  *pool.VectoredBuffer
	req  recorded
	body int64
}

func (r *recorder) OnRequestLine(l protocol.RequestLine) error {
	r.req.Method = r.buf.String(l.Method)
	r.req.Target = r.buf.String(l.Target)
	r.req.Minor = l.Minor
	return nil
}

func (r *recorder) OnHeader(f protocol.HeaderField) error {
	name, value := r.buf.String(f.Name), r.buf.String(f.Value)
	if r.buf.EqualFold(f.Name, "content-length") {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return protocol.ErrBadRequest
		}
		r.body = n
	}
	r.req.Headers = append(r.req.Headers, name+"="+value)
	return nil
}

func (r *recorder) OnHeadersFinished() (int64, error) { return r.body, nil }

// newBuffer uses tiny regions so that most tokens straddle a region boundary.
func newBuffer() *pool.VectoredBuffer {
	return pool.NewVectoredBuffer(4096, pool.NewRegionPool(8), nil)
}

// scanChunks feeds chunks one at a time and returns the first completed request.
func scanChunks(t *testing.T, chunks [][]byte) (recorded, error) {
	t.Helper()
	buf := newBuffer()
	rec := &recorder{buf: buf}
	sc := protocol.NewScanner(protocol.DefaultConstraints(), buf.Tail())
	for _, ch := range chunks {
		if _, err := buf.Write(ch); err != nil {
			t.Fatalf("buffer write: %v", err)
		}
		st, err := sc.Scan(buf, rec)
		if err != nil {
			return rec.req, err
		}
		if st == protocol.RequestDone {
			return rec.req, nil
		}
	}
	return rec.req, errIncomplete
}

var errIncomplete = errors.New("request incomplete")

func split(data []byte, rng *rand.Rand) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := 1 + rng.Intn(len(data))
		if n > 7 && rng.Intn(2) == 0 {
			n = 1 + rng.Intn(7)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func TestScannerChunkingRoundTrip(t *testing.T) {
	requests := []string{
		"GET /index HTTP/1.1\r\nHost: example.com\r\n\r\n",
		"GET / HTTP/1.0\n\n",
		"HEAD /a/b?c=d HTTP/1.1\r\nHost: h\r\nAccept:   */*  \r\nX-Empty:\r\nUser-Agent: test/1.0\r\n\r\n",
		"\r\nGET /after-blank HTTP/1.1\nHost: x\n\n",
		"POST /upload HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello",
	}
	rng := rand.New(rand.NewSource(42))
	for _, raw := range requests {
		want, err := scanChunks(t, [][]byte{[]byte(raw)})
		if err != nil {
			t.Fatalf("%q as one chunk: %v", raw, err)
		}
		for i := 0; i < 200; i++ {
			got, err := scanChunks(t, split([]byte(raw), rng))
			if err != nil {
				t.Fatalf("%q split: %v", raw, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("%q split mismatch:\n got %+v\nwant %+v", raw, got, want)
			}
		}
	}
}

func TestScannerEndToEndSegments(t *testing.T) {
	raw := []byte("GET /index HTTP/1.1\r\nHost: example.com\r\n\r\n")
	got, err := scanChunks(t, [][]byte{raw[:5], raw[5:25], raw[25:]})
	if err != nil {
		t.Fatal(err)
	}
	want := recorded{Method: "GET", Target: "/index", Minor: 1, Headers: []string{"Host=example.com"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v want %+v", got, want)
	}
}

func TestScannerErrors(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	cases := []struct {
		raw  string
		want error
		code int
	}{
		{"GET / HTTP/2.0\r\n\r\n", protocol.ErrHTTPVersionNotSupported, 505},
		{"GET / HTTP/1.1\rX", protocol.ErrHTTPVersionNotSupported, 505},
		{"GET / FTP/1.1\r\n\r\n", protocol.ErrHTTPVersionNotSupported, 505},
		{"GET /\r\n", protocol.ErrHTTPVersionNotSupported, 505},
		{"G(T / HTTP/1.1\r\n\r\n", protocol.ErrBadRequest, 400},
		{" / HTTP/1.1\r\n\r\n", protocol.ErrBadRequest, 400},
		{"GET  HTTP/1.1\r\n\r\n", protocol.ErrBadRequest, 400},
		{"GET / HTTP/1.1\r\nHost: a\rb\r\n\r\n", protocol.ErrBadRequest, 400},
		{"GET / HTTP/1.1\r\nBad Name: a\r\n\r\n", protocol.ErrBadRequest, 400},
		{"GET / HTTP/1.1\r\nHost: a\r\n folded\r\n\r\n", protocol.ErrBadRequest, 400},
		{"GET / HTTP/1.1\r\nHost: a\x01\r\n\r\n", protocol.ErrBadRequest, 400},
		{"GET / HTTP/1.1\r\n\rX", protocol.ErrBadRequest, 400},
		{"GET /" + string(long) + " HTTP/1.1\r\n\r\n", protocol.ErrURITooLong, 414},
		{"GET / HTTP/1.1\r\nX-Long: " + string(long[:4900]) + string(long[:4900]) + "\r\n\r\n", protocol.ErrRequestHeaderFieldsTooLarge, 431},
	}
	for _, tc := range cases {
		_, err := scanChunks(t, [][]byte{[]byte(tc.raw)})
		if !errors.Is(err, tc.want) {
			t.Errorf("%.40q: got %v, want %v", tc.raw, err, tc.want)
			continue
		}
		se, ok := protocol.AsScanError(err)
		if !ok || se.StatusCode() != tc.code {
			t.Errorf("%.40q: status %v, want %d", tc.raw, se, tc.code)
		}
	}
}

func TestScannerTooManyHeaders(t *testing.T) {
	limits := protocol.DefaultConstraints()
	limits.MaxHeaders = 3
	buf := newBuffer()
	raw := "GET / HTTP/1.1\r\n"
	for i := 0; i < 4; i++ {
		raw += fmt.Sprintf("X-H%d: v\r\n", i)
	}
	raw += "\r\n"
	buf.Write([]byte(raw))
	sc := protocol.NewScanner(limits, buf.Head())
	_, err := sc.Scan(buf, &recorder{buf: buf})
	if !errors.Is(err, protocol.ErrRequestHeaderFieldsTooLarge) {
		t.Fatalf("expected 431, got %v", err)
	}
}

type refuser struct{ recorder }

func (r *refuser) OnRequestLine(l protocol.RequestLine) error {
	if protocol.LookupMethod(r.buf, l.Method) != protocol.MethodGet {
		return protocol.ErrMethodNotAllowed
	}
	return nil
}

func TestScannerConsumerAbort(t *testing.T) {
	buf := newBuffer()
	buf.Write([]byte("DELETE / HTTP/1.1\r\n\r\n"))
	r := &refuser{recorder{buf: buf}}
	sc := protocol.NewScanner(protocol.DefaultConstraints(), buf.Head())
	_, err := sc.Scan(buf, r)
	if !errors.Is(err, protocol.ErrMethodNotAllowed) {
		t.Fatalf("expected 405, got %v", err)
	}
}

func TestScannerPipelined(t *testing.T) {
	buf := newBuffer()
	buf.Write([]byte("GET /one HTTP/1.1\r\nContent-Length: 3\r\n\r\nabcGET /two HTTP/1.1\r\n\r\n"))
	sc := protocol.NewScanner(protocol.DefaultConstraints(), buf.Head())
	var targets []string
	for i := 0; i < 2; i++ {
		rec := &recorder{buf: buf}
		st, err := sc.Scan(buf, rec)
		if err != nil || st != protocol.RequestDone {
			t.Fatalf("request %d: %v %v", i, st, err)
		}
		targets = append(targets, rec.req.Target)
		buf.Consume(sc.Position())
		sc.Reset(sc.Position())
	}
	if !reflect.DeepEqual(targets, []string{"/one", "/two"}) {
		t.Errorf("targets = %v", targets)
	}
	if buf.Len() != 0 {
		t.Errorf("leftover %d bytes", buf.Len())
	}
}

func TestScannerBodyAcrossScans(t *testing.T) {
	buf := newBuffer()
	buf.Write([]byte("GET / HTTP/1.1\r\nContent-Length: 10\r\n\r\n12345"))
	sc := protocol.NewScanner(protocol.DefaultConstraints(), buf.Head())
	rec := &recorder{buf: buf}
	st, err := sc.Scan(buf, rec)
	if err != nil || st != protocol.NeedMore || !sc.InBody() {
		t.Fatalf("first scan: %v %v inBody=%v", st, err, sc.InBody())
	}
	buf.Write([]byte("67890"))
	if st, err := sc.Scan(buf, rec); err != nil || st != protocol.RequestDone {
		t.Fatalf("second scan: %v %v", st, err)
	}
	if sc.Position() != buf.Tail() {
		t.Errorf("position %d tail %d", sc.Position(), buf.Tail())
	}
}
