// File: cork/tracker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cork

import (
	"context"
	"errors"

	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/internal/fdtable"
	"github.com/momentics/hioload-accept/internal/metric"
	"github.com/momentics/hioload-accept/internal/sysfd"
	"github.com/momentics/hioload-accept/log"
)

type entry struct {
	id    api.HandleID
	state api.CorkState
}

// Tracker holds the cork state of every accepted descriptor and of the
// listeners they came from. Each descriptor is expected to have one owner at
// a time; the registry itself is safe for concurrent use across descriptors.
type Tracker struct {
	ctrl    api.CoalescingControl
	table   *fdtable.Table[entry]
	enabled *atomic.Bool
	logger  log.Logger
	meter   otelmetric.Meter
	metrics *metric.CorkMetric

	probes   *atomic.Uint64
	degraded *atomic.Uint64
	flushes  *atomic.Uint64
}

// Stats is a snapshot of tracker counters.
type Stats struct {
	Enabled  bool
	Tracked  int
	Probes   uint64
	Degraded uint64
	Flushes  uint64
}

// New creates a disabled Tracker over ctrl. A nil ctrl selects the platform
// backend.
func New(ctrl api.CoalescingControl, opts ...Option) *Tracker {
	if ctrl == nil {
		ctrl = sysfd.NewCoalescingControl()
	}
	t := &Tracker{
		ctrl:     ctrl,
		table:    fdtable.New[entry](),
		enabled:  atomic.NewBool(false),
		logger:   log.DiscardLogger,
		probes:   atomic.NewUint64(0),
		degraded: atomic.NewUint64(0),
		flushes:  atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(t)
	}
	m, err := metric.NewCorkMetric(t.meter)
	if err != nil {
		t.logger.Warnf("cork metrics disabled: %v", err)
		m, _ = metric.NewCorkMetric(nil)
	}
	t.metrics = m
	t.logger = t.logger.With("component", "cork")
	return t
}

// Enable flips the process-wide switch.
func (t *Tracker) Enable(on bool) { t.enabled.Store(on) }

// IsEnabled reports the switch.
func (t *Tracker) IsEnabled() bool { return t.enabled.Load() }

// OnAccept records client as accepted through acceptor. The acceptor is
// probed the first time it is seen under its current identity.
func (t *Tracker) OnAccept(acceptor, client api.Socket) error {
	if !t.enabled.Load() {
		return nil
	}
	astate, err := t.resolveAcceptor(acceptor)
	if err != nil {
		return err
	}

	state := api.CorkIgnore
	if astate == api.CorkAcceptor {
		state = api.CorkWriter
		if !t.ctrl.Inherited() {
			corked, err := t.probe(client.FD)
			if err != nil {
				return err
			}
			if !corked {
				state = api.CorkIgnore
			}
		}
	}
	t.table.Store(client.FD, entry{id: client.ID, state: state})
	return nil
}

// resolveAcceptor returns the cached state of s or probes it. The probe runs
// under the shard lock so concurrent accepts through one listener probe once.
func (t *Tracker) resolveAcceptor(s api.Socket) (api.CorkState, error) {
	var perr error
	e := t.table.Update(s.FD, func(cur entry, ok bool) (entry, bool) {
		if ok && cur.id == s.ID && (cur.state == api.CorkAcceptor || cur.state == api.CorkIgnore) {
			return cur, false
		}
		corked, err := t.probe(s.FD)
		if err != nil {
			perr = err
			return cur, false
		}
		next := entry{id: s.ID, state: api.CorkIgnore}
		if corked {
			next.state = api.CorkAcceptor
		}
		return next, true
	})
	if perr != nil {
		return api.CorkIgnore, perr
	}
	return e.state, nil
}

// probe reads the option on fd. Unsupported sockets report false.
func (t *Tracker) probe(fd int) (bool, error) {
	ctx := context.Background()
	t.probes.Inc()
	corked, err := t.ctrl.Probe(fd)
	switch {
	case err == nil:
		if corked {
			t.metrics.Probe(ctx, "corked")
		} else {
			t.metrics.Probe(ctx, "uncorked")
		}
		return corked, nil
	case sysfd.Unsupported(err):
		t.degraded.Inc()
		t.metrics.Probe(ctx, "unsupported")
		t.logger.Debugf("fd=%d: coalescing unsupported, ignoring: %v", fd, err)
		return false, nil
	default:
		t.metrics.Probe(ctx, "error")
		return false, tagged("getsockopt(IPPROTO_TCP, cork)", fd, err)
	}
}

// OnSend marks a writer as written. Call it after every write that sent bytes.
func (t *Tracker) OnSend(s api.Socket) {
	if !t.enabled.Load() {
		return
	}
	t.table.Update(s.FD, func(cur entry, ok bool) (entry, bool) {
		if !ok || cur.id != s.ID || cur.state != api.CorkWriter {
			return cur, false
		}
		cur.state = api.CorkWritten
		return cur, true
	})
}

// OnRecv flushes a written descriptor and returns it to writer. Call it on
// every read attempt, whatever the read returned.
func (t *Tracker) OnRecv(s api.Socket) error {
	if !t.enabled.Load() {
		return nil
	}
	flush := false
	t.table.Update(s.FD, func(cur entry, ok bool) (entry, bool) {
		if !ok || cur.id != s.ID || cur.state != api.CorkWritten {
			return cur, false
		}
		flush = true
		cur.state = api.CorkWriter
		return cur, true
	})
	if !flush {
		return nil
	}
	ctx := context.Background()
	t.flushes.Inc()
	t.metrics.Flush(ctx)
	err := t.ctrl.Flush(s.FD)
	switch {
	case err == nil:
		return nil
	case sysfd.Unsupported(err):
		t.table.Update(s.FD, func(cur entry, ok bool) (entry, bool) {
			if !ok || cur.id != s.ID {
				return cur, false
			}
			cur.state = api.CorkIgnore
			return cur, true
		})
		t.degraded.Inc()
		t.metrics.Probe(ctx, "unsupported")
		t.logger.Debugf("%s: coalescing unsupported on flush, ignoring: %v", s, err)
		return nil
	default:
		return tagged("setsockopt(IPPROTO_TCP, cork)", s.FD, err)
	}
}

// State returns the state recorded for s, or CorkIgnore when the descriptor
// is untracked or owned by another handle.
func (t *Tracker) State(s api.Socket) api.CorkState {
	e, ok := t.table.Load(s.FD)
	if !ok || e.id != s.ID {
		return api.CorkIgnore
	}
	return e.state
}

// Forget drops fd from the registry. Call it when the descriptor is closed.
func (t *Tracker) Forget(fd int) {
	t.table.Delete(fd)
}

// Len returns the number of tracked descriptors.
func (t *Tracker) Len() int { return t.table.Len() }

// Stats returns a snapshot of the tracker counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Enabled:  t.enabled.Load(),
		Tracked:  t.table.Len(),
		Probes:   t.probes.Load(),
		Degraded: t.degraded.Load(),
		Flushes:  t.flushes.Load(),
	}
}

// States returns the state counts across the registry.
func (t *Tracker) States() map[api.CorkState]int {
	out := make(map[api.CorkState]int)
	t.table.Range(func(_ int, e entry) bool {
		out[e.state]++
		return true
	})
	return out
}

func tagged(op string, fd int, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewError(api.ErrCodeSyscall, op, err).WithKind(api.KindOther).WithContext("fd", fd)
}
