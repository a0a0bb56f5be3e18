// File: server/server.go
// Package server implements the HTTPS server facade: listener, acceptor,
// reactor workers and their supervision.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-tls/control"
	"github.com/momentics/hioload-tls/internal/concurrency"
	"github.com/momentics/hioload-tls/internal/transport"
	"github.com/momentics/hioload-tls/pool"
	"github.com/momentics/hioload-tls/tlsconn"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNotRunning     = errors.New("server not running")
)

// Server is a multi-threaded HTTPS server for GET requests.
type Server struct {
	cfg     *Config
	handler GetHandler
	log     *log.Logger

	metrics *serverMetrics
	probes  *control.DebugProbes
	regions *pool.RegionPool
	budget  *pool.BudgetObserver
	adm     *admission
	term    *concurrency.TerminationFlag
	live    atomic.Int32 // workers running

	mu      sync.Mutex
	started bool
	ln      *transport.Listener
	acc     *acceptor
	workers []*worker
	status  chan WorkerStatus
	done    chan struct{}
	err     error
}

// New builds a server from DefaultConfig and opts. Nothing is bound until Start.
func New(handler GetHandler, opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return NewWithConfig(cfg, handler)
}

// NewWithConfig builds a server from an explicit configuration.
func NewWithConfig(cfg *Config, handler GetHandler) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server: nil handler")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		log:     cfg.componentLogger("server"),
		metrics: newServerMetrics(control.NewMetricsRegistry()),
		probes:  control.NewDebugProbes(),
		regions: pool.NewRegionPool(cfg.RegionSize),
		adm:     newAdmission(cfg),
		term:    concurrency.NewTerminationFlag(),
		done:    make(chan struct{}),
	}
	if cfg.BufferBudget > 0 {
		s.budget = pool.NewBudgetObserver(cfg.BufferBudget)
	}
	control.RegisterPlatformProbes(s.probes)
	s.probes.RegisterProbe("conn.live", func() any { return s.adm.Live() })
	s.probes.RegisterProbe("buffers.in_use", func() any { return s.regions.Stats().InUse })
	if s.budget != nil {
		s.probes.RegisterProbe("buffers.budget_used", func() any { return s.budget.Used() })
	}
	s.probes.RegisterProbe("workers.live", func() any { return s.live.Load() })
	return s, nil
}

// Start binds the listener and launches the acceptor and workers.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyRunning
	}
	ln, err := transport.Listen(s.cfg.Addr, s.cfg.Backlog)
	if err != nil {
		return err
	}
	s.status = make(chan WorkerStatus, 2*(s.cfg.Workers+1))
	cpus := concurrency.AllowedCPUs()
	workers := make([]*worker, 0, s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		w, err := newWorker(i, s.cfg, s.newFactory(ln.Addr()), s.term, s.status, s.metrics)
		if err != nil {
			for _, w := range workers {
				_ = w.ep.Close()
				w.close()
			}
			_ = ln.Close()
			return fmt.Errorf("server: start worker %d: %w", i, err)
		}
		if s.cfg.CPUAffinity && len(cpus) > 0 {
			w.pinCPU = cpus[i%len(cpus)]
		}
		workers = append(workers, w)
	}
	acc, err := newAcceptor(s.cfg, ln, workers, s.adm, s.term, s.status, s.metrics)
	if err != nil {
		for _, w := range workers {
			_ = w.ep.Close()
			w.close()
		}
		_ = ln.Close()
		return fmt.Errorf("server: start acceptor: %w", err)
	}
	s.ln, s.acc, s.workers = ln, acc, workers
	s.started = true
	s.live.Store(int32(len(workers)))
	for _, w := range workers {
		go w.run()
	}
	go acc.run()
	go s.supervise()
	s.log.Printf("listening on %s with %d workers (%s)", ln.Addr(), len(workers), s.cfg.Distribution)
	return nil
}

func (s *Server) newFactory(local netip.AddrPort) *clientFactory {
	tc := &tlsconn.Config{
		TLS:          s.cfg.TLS,
		Regions:      s.regions,
		RingCapacity: s.cfg.RingCapacity,
		Scratch:      make([]byte, s.cfg.RegionSize),
		Local:        local,
	}
	if s.budget != nil {
		tc.Observer = s.budget
	}
	return &clientFactory{
		cfg:     s.cfg,
		tls:     tc,
		handler: s.handler,
		adm:     s.adm,
		metrics: s.metrics,
		log:     s.log,
	}
}

// supervise collects status reports. The first failure shuts everything
// down; once every thread exited the listener is closed.
func (s *Server) supervise() {
	pending := len(s.workers) + 1
	var errs []error
	for pending > 0 {
		st := <-s.status
		if st.Err != nil {
			errs = append(errs, fmt.Errorf("worker %d: %w", st.WorkerID, st.Err))
			s.term.Raise()
		}
		if st.Exited {
			pending--
			if st.WorkerID != AcceptorID {
				s.live.Add(-1)
			}
		}
	}
	s.mu.Lock()
	for _, w := range s.workers {
		w.close()
	}
	_ = s.ln.Close()
	s.err = errors.Join(errs...)
	s.workers = nil
	s.mu.Unlock()
	s.log.Printf("stopped")
	close(s.done)
}

// Addr returns the bound address, valid after Start.
func (s *Server) Addr() netip.AddrPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return netip.AddrPort{}
	}
	return s.ln.Addr()
}

// Wait blocks until the server stopped and returns the first failures, if any.
func (s *Server) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Shutdown raises the termination flag and waits for every thread to exit
// or ctx to expire. Each thread notices the flag within one WaitTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.term.Raise()
	// Wake descriptors are closed by the supervisor under mu.
	for _, w := range s.workers {
		_ = w.wake.Wake()
	}
	s.mu.Unlock()
	select {
	case <-s.done:
		return s.Wait()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListenAndServe starts the server and blocks until ctx is cancelled or a
// worker fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case <-s.done:
		return s.Wait()
	}
}

// Metrics exposes the server's counters.
func (s *Server) Metrics() *control.MetricsRegistry { return s.metrics.reg }

// Probes exposes the server's debug probes.
func (s *Server) Probes() *control.DebugProbes { return s.probes }

// Config returns the validated configuration.
func (s *Server) Config() *Config { return s.cfg }
