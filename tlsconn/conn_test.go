package tlsconn

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/fake"
	"github.com/momentics/hioload-tls/internal/selfsigned"
	"github.com/momentics/hioload-tls/pool"
)

// echoUser upper-cases everything it receives.
type echoUser struct {
	consume bool
	out     []byte
}

func (u *echoUser) UsePlaintext(c *Conn, ring *pool.VectoredBuffer) error {
	if !u.consume {
		return nil
	}
	for _, v := range ring.Vectors(nil) {
		u.out = append(u.out, bytes.ToUpper(v)...)
	}
	return ring.Consume(ring.Tail())
}

func (u *echoUser) Pending() bool { return len(u.out) > 0 }

func (u *echoUser) Flush(c *Conn) error {
	n, err := c.WritePlaintext(u.out)
	u.out = u.out[n:]
	if errors.Is(err, api.ErrWouldBlock) {
		return nil
	}
	return err
}

func newFakeConn(t *testing.T) (*Conn, *fake.Socket) {
	t.Helper()
	tc, _, err := selfsigned.ServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	remote := netip.MustParseAddrPort("192.0.2.1:4000")
	c := New(&Config{TLS: tc, Regions: pool.NewRegionPool(4096), RingCapacity: 4}, &echoUser{consume: true}, remote)
	t.Cleanup(c.Release)
	return c, fake.NewSocket(remote)
}

func TestServiceIdleWaitsForInput(t *testing.T) {
	c, sock := newFakeConn(t)
	rs, err := c.Service(sock)
	if err != nil {
		t.Fatal(err)
	}
	if rs != api.Readable || c.State() != Handshaking {
		t.Fatalf("interest %v state %v", rs, c.State())
	}
	if len(sock.Written()) != 0 {
		t.Fatal("server spoke first")
	}
}

func TestServicePeerGone(t *testing.T) {
	c, sock := newFakeConn(t)
	sock.SetEOF()
	rs, err := c.Service(sock)
	if err != nil || !rs.Empty() || c.State() != Closed {
		t.Fatalf("rs %v err %v state %v", rs, err, c.State())
	}
	if rs, err := c.Service(sock); err != nil || !rs.Empty() {
		t.Fatalf("service after close: %v %v", rs, err)
	}
}

func TestServiceReadErrorIsFatal(t *testing.T) {
	c, sock := newFakeConn(t)
	reset := errors.New("connection reset by peer")
	sock.SetReadError(reset)
	if _, err := c.Service(sock); !errors.Is(err, reset) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestServiceRejectsPlaintextHTTP(t *testing.T) {
	c, sock := newFakeConn(t)
	sock.Feed([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	_, err := c.Service(sock)
	if !errors.Is(err, ErrProcessNewPackets) || api.KindOf(err) != api.KindProtocol {
		t.Fatalf("expected protocol error, got %v", err)
	}
}
