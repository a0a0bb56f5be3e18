// File: server/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor worker: one OS thread, one epoll instance, one connection table.

package server

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/internal/concurrency"
	"github.com/momentics/hioload-tls/reactor"
)

// WorkerStatus is reported by a worker (or the acceptor, WorkerID -1)
// when it fails or exits.
type WorkerStatus struct {
	WorkerID int
	Err      error
	Exited   bool
}

// AcceptorID is the WorkerID used by the acceptor's status reports.
const AcceptorID = -1

type entry struct {
	sock     api.Socket
	user     api.ConnectionUser
	interest api.RegistrationState
}

type worker struct {
	id      int
	pinCPU  int // -1 = not pinned
	cfg     *Config
	ep      *reactor.EventPoll
	wake    *concurrency.Wakeup
	inbox   chan api.Socket
	factory api.ConnectionUserFactory
	conns   map[reactor.Token]*entry
	term    *concurrency.TerminationFlag
	status  chan<- WorkerStatus
	metrics *serverMetrics
	log     *log.Logger

	_    cpu.CacheLinePad
	load atomic.Int64 // sockets queued or owned, read by the acceptor
	_    cpu.CacheLinePad
}

func newWorker(id int, cfg *Config, factory api.ConnectionUserFactory, term *concurrency.TerminationFlag,
	status chan<- WorkerStatus, m *serverMetrics) (*worker, error) {
	ep, err := reactor.NewEventPoll(reactor.WithMaxEvents(cfg.MaxEvents), reactor.WithEdgeTriggered(cfg.EdgeTriggered))
	if err != nil {
		return nil, err
	}
	wake, err := concurrency.NewWakeup()
	if err != nil {
		_ = ep.Close()
		return nil, err
	}
	if err := ep.Add(wake.Fd(), api.Readable, reactor.WakeToken); err != nil {
		_ = wake.Close()
		_ = ep.Close()
		return nil, fmt.Errorf("worker %d: register wakeup: %w", id, err)
	}
	return &worker{
		id:      id,
		pinCPU:  -1,
		cfg:     cfg,
		ep:      ep,
		wake:    wake,
		inbox:   make(chan api.Socket, cfg.InboxCapacity),
		factory: factory,
		conns:   make(map[reactor.Token]*entry),
		term:    term,
		status:  status,
		metrics: m,
		log:     cfg.componentLogger(fmt.Sprintf("worker %d", id)),
	}, nil
}

// submit queues sock for adoption. It never blocks; false means the inbox
// is full and the caller still owns sock.
func (w *worker) submit(sock api.Socket) bool {
	select {
	case w.inbox <- sock:
	default:
		return false
	}
	w.load.Add(1)
	if err := w.wake.Wake(); err != nil {
		w.log.Printf("wake: %v", err)
	}
	return true
}

// Load returns the number of sockets queued for or owned by the worker.
func (w *worker) Load() int64 { return w.load.Load() }

// run is the worker loop. It returns after the termination flag is raised
// or the multiplexer failed, with every connection torn down.
func (w *worker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if w.pinCPU >= 0 {
		if err := concurrency.PinCurrentThread(w.pinCPU); err != nil {
			w.log.Printf("pin to cpu %d: %v", w.pinCPU, err)
		}
	}
	var err error
	for !w.term.Raised() {
		if err = w.ep.Wait(w.cfg.WaitTimeout, w); err != nil {
			w.log.Printf("fatal: %v", err)
			w.status <- WorkerStatus{WorkerID: w.id, Err: err}
			break
		}
	}
	w.shutdown()
	w.status <- WorkerStatus{WorkerID: w.id, Exited: true}
}

// React implements reactor.Reactor.
func (w *worker) React(ep *reactor.EventPoll, token reactor.Token, _ reactor.ReadyFlags) error {
	if token == reactor.WakeToken {
		if _, err := w.wake.Drain(); err != nil {
			return fmt.Errorf("drain wakeup: %w", err)
		}
		w.adopt()
		return nil
	}
	e, ok := w.conns[token]
	if !ok {
		// Closed earlier in this batch; its token is never handed out again.
		w.metrics.stale.Inc()
		return nil
	}
	rs, err := e.user.Service(e.sock)
	if err != nil {
		w.metrics.errors.Inc()
		w.log.Printf("conn %s %s: %v", connID(e.user), e.sock.RemoteAddr(), err)
		w.drop(token, e)
		return nil
	}
	if rs.Empty() {
		w.drop(token, e)
		return nil
	}
	if rs != e.interest {
		if err := ep.Modify(e.sock.Fd(), rs, token); err != nil {
			w.metrics.errors.Inc()
			w.log.Printf("conn %s: %v", connID(e.user), err)
			w.drop(token, e)
			return nil
		}
		e.interest = rs
	}
	return nil
}

// adopt registers every queued socket.
func (w *worker) adopt() {
	for {
		select {
		case sock := <-w.inbox:
			w.attach(sock)
		default:
			return
		}
	}
}

func (w *worker) attach(sock api.Socket) {
	remote := sock.RemoteAddr()
	user, err := w.factory.Connect(remote)
	if err != nil {
		w.log.Printf("connect %s: %v", remote, err)
		w.discard(sock)
		return
	}
	token := reactor.NextToken()
	if err := w.ep.Add(sock.Fd(), api.Readable, token); err != nil {
		w.metrics.errors.Inc()
		w.log.Printf("register %s: %v", remote, err)
		user.Release()
		w.discard(sock)
		return
	}
	w.conns[token] = &entry{sock: sock, user: user, interest: api.Readable}
}

// drop unregisters and tears down one connection.
func (w *worker) drop(token reactor.Token, e *entry) {
	if err := w.ep.Delete(e.sock.Fd()); err != nil && !errors.Is(err, api.ErrClosed) {
		w.log.Printf("unregister %s: %v", e.sock.RemoteAddr(), err)
	}
	delete(w.conns, token)
	e.user.Release()
	w.discard(e.sock)
}

// discard closes a socket the worker owns and settles its accounting.
func (w *worker) discard(sock api.Socket) {
	remote := sock.RemoteAddr()
	_ = sock.Close()
	w.factory.Disconnect(remote)
	w.load.Add(-1)
}

// shutdown tears down the worker's connections and multiplexer. The
// wakeup descriptor stays open until the acceptor has stopped too.
func (w *worker) shutdown() {
	for token, e := range w.conns {
		w.drop(token, e)
	}
	w.drainInbox()
	_ = w.ep.Close()
}

// drainInbox refuses every socket still queued.
func (w *worker) drainInbox() {
	for {
		select {
		case sock := <-w.inbox:
			w.discard(sock)
		default:
			return
		}
	}
}

// close releases what outlives run. Called once the acceptor has exited.
func (w *worker) close() {
	w.drainInbox()
	_ = w.wake.Close()
}

func connID(u api.ConnectionUser) string {
	if id, ok := u.(interface{ ID() string }); ok {
		return id.ID()
	}
	return "-"
}
