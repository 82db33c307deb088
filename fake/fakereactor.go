// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-accept/api"
)

type registration struct {
	events api.FDEventType
	armed  bool
	cb     api.FDCallback
}

type firing struct {
	fd     uintptr
	events api.FDEventType
}

// Reactor is an in-memory api.Reactor with oneshot semantics. Fire queues a
// readiness event which the next Poll dispatches if the fd is armed.
type Reactor struct {
	mu      sync.Mutex
	regs    map[uintptr]*registration
	pending chan firing
	closed  bool
}

var _ api.Reactor = (*Reactor)(nil)

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{
		regs:    make(map[uintptr]*registration),
		pending: make(chan firing, 1024),
	}
}

func (r *Reactor) Register(fd uintptr, events api.FDEventType, cb api.FDCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrClosed
	}
	r.regs[fd] = &registration{events: events, armed: true, cb: cb}
	return nil
}

func (r *Reactor) Rearm(fd uintptr, events api.FDEventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[fd]
	if !ok {
		return api.ErrInvalidArgument
	}
	reg.events = events
	reg.armed = true
	return nil
}

func (r *Reactor) Unregister(fd uintptr) error {
	r.mu.Lock()
	delete(r.regs, fd)
	r.mu.Unlock()
	return nil
}

// Fire queues a readiness event for fd.
func (r *Reactor) Fire(fd uintptr, events api.FDEventType) {
	r.pending <- firing{fd: fd, events: events}
}

// Armed reports whether fd is registered and waiting for an event.
func (r *Reactor) Armed(fd uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[fd]
	return ok && reg.armed
}

func (r *Reactor) Poll(timeoutMs int) error {
	var timer <-chan time.Time
	if timeoutMs >= 0 {
		t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer t.Stop()
		timer = t.C
	}
	select {
	case f := <-r.pending:
		r.mu.Lock()
		reg, ok := r.regs[f.fd]
		var cb api.FDCallback
		if ok && reg.armed && reg.events&f.events != 0 {
			reg.armed = false
			cb = reg.cb
		}
		r.mu.Unlock()
		if cb != nil {
			cb(f.fd, f.events)
		}
	case <-timer:
	}
	return nil
}

func (r *Reactor) Close() error {
	r.mu.Lock()
	r.closed = true
	r.regs = make(map[uintptr]*registration)
	r.mu.Unlock()
	return nil
}
