// File: tlsconn/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tlsconn

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/internal/tlsengine"
	"github.com/momentics/hioload-tls/pool"
)

var (
	// ErrProcessNewPackets wraps a TLS decode failure.
	ErrProcessNewPackets = errors.New("tls process new packets")
	// ErrReadBufferLengthExceeded means decrypted data outgrew the plaintext ring.
	ErrReadBufferLengthExceeded = errors.New("read buffer length exceeded")
)

// PlaintextUser consumes decrypted bytes and produces the response stream.
type PlaintextUser interface {
	// UsePlaintext is called after new plaintext landed in ring. The user
	// consumes what it has finished with.
	UsePlaintext(c *Conn, ring *pool.VectoredBuffer) error
	// Pending reports application output not yet handed to the session.
	Pending() bool
	// Flush hands pending output to c.WritePlaintext as far as room allows.
	Flush(c *Conn) error
}

// Config is shared by every Conn of one worker.
type Config struct {
	TLS          *tls.Config
	Regions      *pool.RegionPool
	RingCapacity int
	Observer     pool.AllocationObserver
	// Scratch receives raw ciphertext from the socket. Conns of one worker
	// share it because they are serviced one at a time.
	Scratch []byte
	Local   netip.AddrPort
}

// Conn is one TLS connection. Not safe for concurrent use.
type Conn struct {
	sess    api.TLSSession
	plain   *pool.VectoredBuffer
	cipher  *pool.VectoredBuffer
	scratch []byte
	user    PlaintextUser

	state        State
	closeAfter   bool
	notifyQueued bool
	broken       bool // peer vanished while we were closing
	bytesRead    uint64
	bytesWritten uint64
}

// New creates a connection and starts its TLS session.
func New(cfg *Config, user PlaintextUser, remote netip.AddrPort) *Conn {
	c := &Conn{
		plain:   pool.NewVectoredBuffer(cfg.RingCapacity, cfg.Regions, cfg.Observer),
		cipher:  pool.NewVectoredBuffer(cfg.RingCapacity, cfg.Regions, cfg.Observer),
		scratch: cfg.Scratch,
		user:    user,
	}
	if len(c.scratch) == 0 {
		c.scratch = make([]byte, cfg.Regions.Size())
	}
	c.sess = tlsengine.NewSession(cfg.TLS, c.cipher, cfg.Local, remote)
	return c
}

// State returns the phase reached by the last step.
func (c *Conn) State() State { return c.state }

// HandshakeComplete reports whether application data may flow.
func (c *Conn) HandshakeComplete() bool { return c.sess.HandshakeComplete() }

// PeerCertificate returns the verified client certificate, if any.
func (c *Conn) PeerCertificate() *x509.Certificate { return c.sess.PeerCertificate() }

// PlaintextRoom returns how many bytes WritePlaintext accepts right now.
func (c *Conn) PlaintextRoom() int { return c.sess.PlaintextRoom() }

// WritePlaintext encrypts response bytes into the ciphertext ring.
func (c *Conn) WritePlaintext(p []byte) (int, error) { return c.sess.WritePlaintext(p) }

// CloseAfterFlush asks for close_notify and closure once all output is written.
func (c *Conn) CloseAfterFlush() { c.closeAfter = true }

// Stats returns raw socket byte counts.
func (c *Conn) Stats() (read, written uint64) { return c.bytesRead, c.bytesWritten }

// Service performs one non-blocking step. An empty state means the
// connection is finished and must be closed.
//
// Reading and writing alternate until the socket has no more input for us
// or output backs up, so no readable data is left behind an edge.
func (c *Conn) Service(sock api.Socket) (api.RegistrationState, error) {
	if c.state == Closed {
		return 0, nil
	}
	for {
		drained, err := c.readStep(sock)
		if err != nil {
			return 0, err
		}
		if err := c.writeStep(sock); err != nil {
			return 0, err
		}
		if drained || c.broken || c.state == Closing || c.user.Pending() || !c.sess.WantsRead() {
			break
		}
	}
	rs := c.interest()
	if rs.Empty() {
		c.discardInput(sock)
	}
	return rs, nil
}

// discardInput drops whatever the peer sent after we decided to close.
// Unread input would make the kernel answer the close with a reset.
func (c *Conn) discardInput(sock api.Socket) {
	for i := 0; i < 16; i++ {
		if n, err := sock.Read(c.scratch); err != nil || n == 0 {
			return
		}
	}
}

// readStep reads and decrypts until the socket would block, the peer
// closed, or the user has output pending. drained reports the first two.
func (c *Conn) readStep(sock api.Socket) (drained bool, err error) {
	for c.state != Closing && c.sess.WantsRead() && !c.user.Pending() {
		n, err := sock.Read(c.scratch)
		if errors.Is(err, api.ErrWouldBlock) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			c.state = Closing
			return true, nil
		}
		c.bytesRead += uint64(n)
		if err := c.sess.ProcessNewPackets(c.scratch[:n]); err != nil {
			// The engine may have queued an alert; it is sent best effort.
			_, _ = c.sess.WriteCiphertextTo(sock)
			return false, fmt.Errorf("%w: %w", ErrProcessNewPackets, err)
		}
		if c.sess.PlaintextLen() > 0 {
			if _, err := c.plain.ReadFrom(c.sess); err != nil {
				if errors.Is(err, pool.ErrBufferLengthExceeded) {
					return false, fmt.Errorf("%w: %w", ErrReadBufferLengthExceeded, err)
				}
				return false, err
			}
			if err := c.user.UsePlaintext(c, c.plain); err != nil {
				return false, err
			}
		}
		if c.sess.PeerClosed() {
			c.state = Closing
			return true, nil
		}
	}
	return false, nil
}

func (c *Conn) writeStep(sock api.Socket) error {
	for {
		if c.user.Pending() && c.sess.HandshakeComplete() {
			if err := c.user.Flush(c); err != nil {
				return err
			}
		}
		if c.wantsClose() && !c.user.Pending() && !c.notifyQueued {
			c.sess.SendCloseNotify()
			c.notifyQueued = true
		}
		if !c.sess.WantsWrite() {
			return nil
		}
		n, err := c.sess.WriteCiphertextTo(sock)
		c.bytesWritten += uint64(n)
		if errors.Is(err, api.ErrWouldBlock) {
			return nil
		}
		if err != nil {
			if c.wantsClose() {
				c.broken = true
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (c *Conn) wantsClose() bool {
	return c.state == Closing || c.closeAfter || c.sess.PeerClosed()
}

// interest derives the next registration and the state it implies.
func (c *Conn) interest() api.RegistrationState {
	if c.broken {
		c.state = Closed
		return 0
	}
	var rs api.RegistrationState
	pending := c.user.Pending()
	if c.sess.WantsWrite() || pending {
		rs |= api.Writable
	}
	closing := c.wantsClose()
	if !closing && !pending && c.sess.WantsRead() {
		rs |= api.Readable
	}
	switch {
	case closing && !rs.Writable():
		c.state = Closed
		return 0
	case closing:
		c.state = Closing
	case !c.sess.HandshakeComplete():
		c.state = Handshaking
	case rs.Writable():
		c.state = WritingApplicationData
	default:
		c.state = ReadingApplicationData
	}
	if rs.Empty() {
		c.state = Closed
	}
	return rs
}

// Release stops the session and returns both rings. Called once, after the
// socket has been unregistered.
func (c *Conn) Release() {
	_ = c.sess.Close()
	c.plain.Release()
	c.cipher.Release()
	c.state = Closed
}
