// File: server/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"log"
	"time"

	"github.com/momentics/hioload-tls/api"
	"github.com/momentics/hioload-tls/internal/concurrency"
	"github.com/momentics/hioload-tls/internal/transport"
	"github.com/momentics/hioload-tls/reactor"
)

// Bounds of the pause after the kernel refuses an accept outright.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// acceptor owns the listening socket and hands each accepted socket to
// exactly one worker.
type acceptor struct {
	cfg     *Config
	ln      *transport.Listener
	ep      *reactor.EventPoll
	token   reactor.Token
	workers []*worker
	dist    Distributor
	adm     *admission
	term    *concurrency.TerminationFlag
	status  chan<- WorkerStatus
	metrics *serverMetrics
	log     *log.Logger

	// Listener interest is dropped while paused and restored at resume.
	paused bool
	delay  time.Duration
	resume time.Time
}

func newAcceptor(cfg *Config, ln *transport.Listener, workers []*worker, adm *admission,
	term *concurrency.TerminationFlag, status chan<- WorkerStatus, m *serverMetrics) (*acceptor, error) {
	ep, err := reactor.NewEventPoll(reactor.WithMaxEvents(16))
	if err != nil {
		return nil, err
	}
	a := &acceptor{
		cfg:     cfg,
		ln:      ln,
		ep:      ep,
		token:   reactor.NextToken(),
		workers: workers,
		dist:    newDistributor(cfg.Distribution),
		adm:     adm,
		term:    term,
		status:  status,
		metrics: m,
		log:     cfg.componentLogger("acceptor"),
	}
	if err := ep.Add(ln.Fd(), api.Readable, a.token); err != nil {
		_ = ep.Close()
		return nil, err
	}
	return a, nil
}

func (a *acceptor) run() {
	for !a.term.Raised() {
		timeout, err := a.rearm()
		if err == nil {
			err = a.ep.Wait(timeout, a)
		}
		if err != nil {
			a.log.Printf("fatal: %v", err)
			a.status <- WorkerStatus{WorkerID: AcceptorID, Err: err}
			break
		}
	}
	_ = a.ep.Close()
	a.status <- WorkerStatus{WorkerID: AcceptorID, Exited: true}
}

// React implements reactor.Reactor: it accepts until the backlog is empty.
func (a *acceptor) React(_ *reactor.EventPoll, token reactor.Token, _ reactor.ReadyFlags) error {
	if token != a.token {
		a.metrics.stale.Inc()
		return nil
	}
	for !a.term.Raised() {
		sock, err := a.ln.Accept()
		if errors.Is(err, api.ErrWouldBlock) {
			return nil
		}
		if err != nil {
			if api.KindOf(err) != api.KindResourceLimit {
				return err
			}
			a.metrics.limited.Inc()
			serr := a.ln.Shed()
			if serr == nil {
				a.metrics.shed.Inc()
				a.log.Printf("accept: %v: pending connection closed", err)
				continue
			}
			if errors.Is(serr, api.ErrWouldBlock) {
				return nil
			}
			return a.pause(serr)
		}
		a.delay = 0
		a.dispatch(sock)
	}
	return nil
}

// pause stops listener readiness reports for a growing delay so a backlog
// the process cannot take is not polled in a tight loop.
func (a *acceptor) pause(cause error) error {
	if a.delay == 0 {
		a.delay = minAcceptDelay
	} else {
		a.delay = min(2*a.delay, maxAcceptDelay)
	}
	a.log.Printf("accept: %v; retrying in %v", cause, a.delay)
	if err := a.ep.Modify(a.ln.Fd(), 0, a.token); err != nil {
		return err
	}
	a.paused = true
	a.resume = time.Now().Add(a.delay)
	return nil
}

// rearm restores listener interest once the pause is over and returns the
// timeout of the next wait.
func (a *acceptor) rearm() (time.Duration, error) {
	timeout := a.cfg.WaitTimeout
	if !a.paused {
		return timeout, nil
	}
	left := time.Until(a.resume)
	if left > 0 {
		return min(timeout, left), nil
	}
	if err := a.ep.Modify(a.ln.Fd(), api.Readable, a.token); err != nil {
		return 0, err
	}
	a.paused = false
	return timeout, nil
}

func (a *acceptor) dispatch(sock api.Socket) {
	remote := sock.RemoteAddr()
	if err := a.adm.Admit(remote); err != nil {
		a.metrics.refused.Inc()
		a.log.Printf("refused %s: %v", remote, err)
		_ = sock.Close()
		return
	}
	i := a.dist.Pick(len(a.workers), func(i int) int64 { return a.workers[i].Load() })
	if !a.workers[i].submit(sock) {
		a.adm.Release()
		a.metrics.refused.Inc()
		a.log.Printf("refused %s: worker %d inbox full", remote, i)
		_ = sock.Close()
		return
	}
	a.metrics.accepted.Inc()
}
