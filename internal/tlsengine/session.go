// File: internal/tlsengine/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tlsengine

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/pool"
)

const (
	maxPlaintextRecord = 16 << 10
	// recordOverhead bounds header, MAC/tag, padding and explicit IV of one record.
	recordOverhead = 512
)

// ErrDecode wraps every failure reported by the engine while processing input.
var ErrDecode = errors.New("tls decode failure")

// Session is a server-side TLS session driven by pushed ciphertext.
// All methods must be called from the owning goroutine.
type Session struct {
	tc  *tls.Conn
	out *pool.VectoredBuffer
	iov [][]byte

	mu        sync.Mutex
	cond      *sync.Cond
	in        *queue.Queue // pushed ciphertext fragments, each a []byte owned by the caller
	off       int          // bytes of the front fragment already read by the engine
	parked    bool
	exited    bool
	closed    bool
	handshake bool
	eof       bool
	err       error
	plain     []byte // decrypted bytes; the engine appends, the owner drains from poff
	poff      int
	state     tls.ConnectionState
}

// NewSession starts a session writing its ciphertext into out.
// The caller keeps ownership of out and releases it after Close.
func NewSession(cfg *tls.Config, out *pool.VectoredBuffer, local, remote netip.AddrPort) *Session {
	s := &Session{
		out: out,
		in:  queue.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	mc := &memConn{
		s:      s,
		local:  net.TCPAddrFromAddrPort(local),
		remote: net.TCPAddrFromAddrPort(remote),
	}
	s.tc = tls.Server(mc, cfg)
	go s.run()
	return s
}

func (s *Session) run() {
	if err := s.tc.Handshake(); err != nil {
		s.exit(err)
		return
	}
	st := s.tc.ConnectionState()
	s.mu.Lock()
	s.state = st
	s.handshake = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		start := len(s.plain)
		dst := s.reserve()
		s.mu.Unlock()
		n, err := s.tc.Read(dst)
		if n > 0 {
			s.mu.Lock()
			s.plain = s.plain[:start+n]
			s.mu.Unlock()
		}
		if err != nil {
			s.exit(err)
			return
		}
	}
}

// reserve returns room for one record past the decrypted bytes, compacting
// or growing the buffer first. Only the engine goroutine moves s.plain, and
// only between reads, so the owner's view plain[poff:] stays valid.
func (s *Session) reserve() []byte {
	if s.poff == len(s.plain) {
		s.plain, s.poff = s.plain[:0], 0
	}
	if cap(s.plain)-len(s.plain) < maxPlaintextRecord {
		if s.poff > 0 && cap(s.plain)-len(s.plain)+s.poff >= maxPlaintextRecord {
			n := copy(s.plain[:cap(s.plain)], s.plain[s.poff:])
			s.plain, s.poff = s.plain[:n], 0
		} else {
			grown := make([]byte, len(s.plain)-s.poff, 2*maxPlaintextRecord+len(s.plain)-s.poff)
			copy(grown, s.plain[s.poff:])
			s.plain, s.poff = grown, 0
		}
	}
	return s.plain[len(s.plain) : len(s.plain)+maxPlaintextRecord]
}

func (s *Session) exit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
	case errors.Is(err, io.EOF):
		s.eof = true
	default:
		s.err = err
	}
	s.exited = true
	s.cond.Broadcast()
}

// ProcessNewPackets hands ciphertext to the engine and runs it until it has
// consumed all of it. The slice is read in place and not retained after
// the call returns.
func (s *Session) ProcessNewPackets(ciphertext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return api.ProtocolError("process new packets", errors.Join(ErrDecode, s.err))
	}
	if s.exited || s.closed || len(ciphertext) == 0 {
		return nil
	}
	s.in.Add(ciphertext)
	s.cond.Broadcast()
	for !s.exited && !(s.parked && s.in.Length() == 0) {
		s.cond.Wait()
	}
	s.dropInput()
	if s.err != nil {
		return api.ProtocolError("process new packets", errors.Join(ErrDecode, s.err))
	}
	return nil
}

// dropInput forgets fragments an exited engine never read.
func (s *Session) dropInput() {
	for s.in.Length() > 0 {
		s.in.Remove()
	}
	s.off = 0
}

// WantsRead reports whether the engine still accepts ciphertext.
func (s *Session) WantsRead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.exited && !s.closed
}

// WantsWrite reports pending ciphertext.
func (s *Session) WantsWrite() bool { return s.out.Len() > 0 }

// ReadPlaintext drains decrypted bytes into p.
func (s *Session) ReadPlaintext(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.plain[s.poff:])
	s.poff += n
	return n, nil
}

// PlaintextLen returns the number of decrypted bytes not yet drained.
func (s *Session) PlaintextLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plain) - s.poff
}

// PlaintextRoom returns how many plaintext bytes fit in the ciphertext ring.
func (s *Session) PlaintextRoom() int {
	free := s.out.Free()
	records := free/(maxPlaintextRecord+recordOverhead) + 1
	return max(free-records*recordOverhead, 0)
}

// WritePlaintext encrypts as much of p as fits.
func (s *Session) WritePlaintext(p []byte) (int, error) {
	if !s.HandshakeComplete() {
		return 0, api.ErrHandshakeIncomplete
	}
	if s.isClosed() {
		return 0, api.ErrClosed
	}
	room := s.PlaintextRoom()
	if room == 0 && len(p) > 0 {
		return 0, api.ErrWouldBlock
	}
	chunk := p[:min(len(p), room)]
	n, err := s.tc.Write(chunk)
	if err != nil {
		return n, api.WriteError("encrypt", err)
	}
	if n < len(p) {
		return n, api.ErrWouldBlock
	}
	return n, nil
}

// WriteCiphertextTo hands all pending ciphertext to w in one vectored write.
func (s *Session) WriteCiphertextTo(w api.VectorWriter) (int, error) {
	if s.out.Len() == 0 {
		return 0, nil
	}
	s.iov = s.out.Vectors(s.iov[:0])
	n, err := w.Writev(s.iov)
	clear(s.iov)
	if n > 0 {
		if cerr := s.out.Consume(s.out.Head() + uint64(n)); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

// HandshakeComplete reports whether application data may flow.
func (s *Session) HandshakeComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshake
}

// PeerClosed reports a clean close_notify from the peer.
func (s *Session) PeerClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof
}

// SendCloseNotify queues close_notify. It is a no-op before the handshake.
func (s *Session) SendCloseNotify() {
	if !s.HandshakeComplete() || s.isClosed() {
		return
	}
	_ = s.tc.CloseWrite()
}

// PeerCertificate returns the client leaf certificate, if one was presented.
func (s *Session) PeerCertificate() *x509.Certificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.PeerCertificates) == 0 {
		return nil
	}
	return s.state.PeerCertificates[0]
}

// ConnectionState returns the negotiated parameters once the handshake is done.
func (s *Session) ConnectionState() tls.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the engine goroutine and waits for it to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	for !s.exited {
		s.cond.Wait()
	}
	s.dropInput()
	s.plain, s.poff = nil, 0
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ api.TLSSession = (*Session)(nil)
