// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server lifecycle: listen, accept loops, connection dispatch and shutdown.

package server

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-accept/accept"
	"github.com/momentics/hioload-accept/affinity"
	"github.com/momentics/hioload-accept/adapters"
	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/control"
	"github.com/momentics/hioload-accept/cork"
	"github.com/momentics/hioload-accept/log"
	"github.com/momentics/hioload-accept/waiter"
)

const (
	// nonBlockingWait bounds a parked non-blocking loop so it notices shutdown.
	nonBlockingWait = 100 * time.Millisecond
	// failureBackoff paces a loop after a fatal accept error.
	failureBackoff = 10 * time.Millisecond
)

// New builds the Server. The listener is created by Listen or on the first Serve.
func New(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Loops < 1 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "server config", api.ErrInvalidArgument).
			WithContext("loops", cfg.Loops)
	}

	s := &Server{
		cfg:        cfg,
		logger:     log.DiscardLogger,
		control:    adapters.NewControlAdapter(),
		conns:      make(map[*Conn]struct{}),
		ids:        atomic.NewUint64(0),
		running:    atomic.NewBool(false),
		stopping:   atomic.NewBool(false),
		rejected:   atomic.NewUint64(0),
		shutdownCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	if s.waiter == nil {
		s.waiter = waiter.NewPoll()
		if cfg.CooperativeWait {
			w, err := waiter.NewCooperative(waiter.WithLogger(s.logger))
			if err != nil {
				s.logger.Warnf("cooperative waiter unavailable, using poll: %v", err)
			} else {
				s.waiter = w
			}
		}
	}

	s.engine = accept.New(append([]accept.Option{
		accept.WithWaiter(s.waiter),
		accept.WithLogger(s.logger),
	}, s.engineOpts...)...)
	s.tracker = cork.New(nil, append([]cork.Option{
		cork.WithEnabled(cfg.Cork),
		cork.WithLogger(s.logger),
	}, s.trackerOpts...)...)

	if err := s.control.SetConfig(map[string]any{
		control.KeyCloseOnExec: s.engine.CloseOnExec(),
		control.KeyNonBlock:    s.engine.NonBlock(),
		control.KeyCorkEnabled: s.tracker.IsEnabled(),
	}); err != nil {
		return nil, err
	}
	s.control.OnReload(s.applyConfig)
	s.registerProbes()
	return s, nil
}

// applyConfig pushes the toggles from the control store into the engine and tracker.
func (s *Server) applyConfig() {
	store := s.control.Config()
	s.engine.SetCloseOnExec(control.Bool(store, control.KeyCloseOnExec, s.engine.CloseOnExec()))
	s.engine.SetNonBlock(control.Bool(store, control.KeyNonBlock, s.engine.NonBlock()))
	s.tracker.Enable(control.Bool(store, control.KeyCorkEnabled, s.tracker.IsEnabled()))
}

func (s *Server) registerProbes() {
	s.control.RegisterDebugProbe("cork.tracked", func() any { return s.tracker.Len() })
	s.control.RegisterDebugProbe("cork.states", func() any {
		out := make(map[string]int)
		for st, n := range s.tracker.States() {
			out[st.String()] = n
		}
		return out
	})
	s.control.RegisterDebugProbe("server.conns", func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.conns)
	})
}

// Listen creates the listener if it does not exist yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := Listen(s.cfg, s.nextID())
	if err != nil {
		return err
	}
	if s.cfg.Cork {
		if err := ln.Cork(); err != nil {
			ln.Close()
			return err
		}
	}
	s.listener = ln
	s.logger.Infof("listening on %s %s (%s)", ln.Network(), ln.Addr(), ln.Socket())
	return nil
}

// Addr returns the bound listener address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr()
}

func (s *Server) nextID() api.HandleID {
	return api.HandleID(s.ids.Inc())
}

// Serve runs the accept loops and blocks until Shutdown.
func (s *Server) Serve(handler Handler) error {
	if handler == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "serve", api.ErrInvalidArgument)
	}
	if s.stopping.Load() {
		return api.ErrClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return api.ErrAlreadyRunning
	}
	if err := s.Listen(); err != nil {
		return err
	}

	for i := 0; i < s.cfg.Loops; i++ {
		s.loops.Add(1)
		go s.acceptLoop(i, handler)
	}
	s.loops.Add(1)
	go s.publishLoop()

	<-s.shutdownCh
	return nil
}

func (s *Server) acceptLoop(id int, handler Handler) {
	defer s.loops.Done()
	if s.cfg.PinLoops {
		if err := affinity.Pin(affinity.ForLoop(id)); err != nil {
			s.logger.Warnf("accept loop %d: pin: %v", id, err)
		}
	}
	ln := s.listener.Socket()
	for {
		if s.stopping.Load() {
			return
		}
		res, err := s.engine.Accept(ln, s.cfg.Mode)
		if err != nil {
			if s.stopping.Load() {
				return
			}
			s.logger.Errorf("accept loop %d: %v", id, err)
			s.pause(failureBackoff)
			continue
		}
		if res.Status == api.WouldBlock {
			if _, err := s.waiter.WaitReadable(ln.FD, nonBlockingWait); err != nil && !s.stopping.Load() {
				s.logger.Errorf("accept loop %d wait: %v", id, err)
				s.pause(failureBackoff)
			}
			continue
		}
		s.dispatch(ln, res, handler)
	}
}

func (s *Server) dispatch(ln api.Socket, res api.AcceptResult, handler Handler) {
	c := &Conn{
		sock:   api.Socket{FD: res.FD, ID: s.nextID()},
		peer:   res.Peer,
		srv:    s,
		closed: atomic.NewBool(false),
	}
	if err := s.tracker.OnAccept(ln, c.sock); err != nil {
		s.logger.Errorf("cork on accept %s: %v", c.sock, err)
		s.rejected.Inc()
		_ = c.Close()
		return
	}

	s.mu.Lock()
	if s.stopping.Load() {
		s.mu.Unlock()
		_ = c.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.handlers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.handlers.Done()
		defer func() {
			if err := c.Close(); err != nil {
				s.logger.Warnf("close %s: %v", c.sock, err)
			}
		}()
		handler(c)
	}()
}

// forget drops c from every registry before its descriptor is closed.
func (s *Server) forget(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.tracker.Forget(c.sock.FD)
	if f, ok := s.waiter.(interface{ Forget(fd int) error }); ok {
		_ = f.Forget(c.sock.FD)
	}
}

func (s *Server) pause(d time.Duration) {
	select {
	case <-s.shutdownCh:
	case <-time.After(d):
	}
}

func (s *Server) publishLoop() {
	defer s.loops.Done()
	interval := s.cfg.MetricsInterval
	if interval <= 0 {
		<-s.shutdownCh
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.shutdownCh:
			return
		case <-t.C:
			s.publish()
		}
	}
}

// Stats publishes the current counters into the control registry and
// returns the combined control view.
func (s *Server) Stats() map[string]any {
	s.publish()
	return s.control.Stats()
}

func (s *Server) publish() {
	es := s.engine.Stats()
	ts := s.tracker.Stats()
	s.control.PublishMetrics(map[string]any{
		"accept.connected":        es.Connected,
		"accept.would_block":      es.WouldBlock,
		"accept.retries":          es.Retries,
		"accept.reclaims":         es.Reclaims,
		"accept.failures":         es.Failures,
		"accept.blocking_resets":  es.BlockingResets,
		"accept.waits":            es.Waits,
		"accept.accept4_fallback": es.Accept4Fallback,
		"cork.enabled":            ts.Enabled,
		"cork.tracked":            ts.Tracked,
		"cork.probes":             ts.Probes,
		"cork.degraded":           ts.Degraded,
		"cork.flushes":            ts.Flushes,
		"server.rejected":         s.rejected.Load(),
	})
}

// Control exposes runtime config, metrics and debug probes.
func (s *Server) Control() api.Control {
	return s.control
}

// Engine returns the accept engine.
func (s *Server) Engine() *accept.Engine { return s.engine }

// Tracker returns the cork tracker.
func (s *Server) Tracker() *cork.Tracker { return s.tracker }

// Shutdown stops the accept loops, waits for handlers up to ShutdownTimeout,
// interrupts the remaining ones and releases the listener and waiter.
// Calls after the first return nil.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.shutdown()
	})
	return err
}

func (s *Server) shutdown() error {
	s.mu.Lock()
	s.stopping.Store(true)
	ln := s.listener
	s.mu.Unlock()
	close(s.shutdownCh)

	var errs error
	if ln != nil {
		errs = multierr.Append(errs, ln.wake())
	}
	if !waitTimeout(&s.loops, s.cfg.ShutdownTimeout) {
		errs = multierr.Append(errs, fmt.Errorf("accept loops did not stop within %s", s.cfg.ShutdownTimeout))
	}

	if !waitTimeout(&s.handlers, s.cfg.ShutdownTimeout) {
		s.mu.Lock()
		for c := range s.conns {
			c.interrupt()
		}
		s.mu.Unlock()
		if !waitTimeout(&s.handlers, s.cfg.ShutdownTimeout) {
			errs = multierr.Append(errs, fmt.Errorf("handlers did not exit within %s", s.cfg.ShutdownTimeout))
		}
	}

	s.publish()
	if ln != nil {
		if f, ok := s.waiter.(interface{ Forget(fd int) error }); ok {
			_ = f.Forget(ln.Socket().FD)
		}
		s.tracker.Forget(ln.Socket().FD)
		errs = multierr.Append(errs, ln.Close())
	}
	if c, ok := s.waiter.(io.Closer); ok {
		errs = multierr.Append(errs, c.Close())
	}
	s.logger.Infof("server stopped")
	return errs
}

func waitTimeout(wg interface{ Wait() }, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if d <= 0 {
		<-done
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
