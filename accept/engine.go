// File: accept/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accept retry engine.

package accept

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/joeycumines/go-catrate"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/internal/metric"
	"github.com/momentics/hioload-accept/internal/sysfd"
	"github.com/momentics/hioload-accept/log"
	"github.com/momentics/hioload-accept/waiter"
)

// Engine accepts connections from listeners it does not own.
// It is safe for concurrent use; many goroutines may accept from the same listener.
type Engine struct {
	ops           api.SocketOps
	waiter        api.Waiter
	reclaimer     api.Reclaimer
	logger        log.Logger
	meter         otelmetric.Meter
	metrics       *metric.AcceptMetric
	limiter       *catrate.Limiter
	resetInterval time.Duration

	cloexec   *atomic.Bool
	nonblock  *atomic.Bool
	noAccept4 *atomic.Bool

	connected  *atomic.Uint64
	wouldBlock *atomic.Uint64
	retries    *atomic.Uint64
	reclaims   *atomic.Uint64
	failures   *atomic.Uint64
	resets     *atomic.Uint64
	waits      *atomic.Uint64
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Connected      uint64
	WouldBlock     uint64
	Retries        uint64
	Reclaims       uint64
	Failures       uint64
	BlockingResets uint64
	Waits          uint64
	// Accept4Fallback is set once the platform reported accept4 missing.
	Accept4Fallback bool
}

// New creates an Engine. Without options it uses the host socket calls, a
// poll(2) waiter and runtime.GC as the reclaim hook.
func New(opts ...Option) *Engine {
	e := &Engine{
		ops:           sysfd.Ops{},
		waiter:        waiter.NewPoll(),
		reclaimer:     api.ReclaimFunc(runtime.GC),
		logger:        log.DiscardLogger,
		resetInterval: DefaultBlockingResetInterval,
		cloexec:       atomic.NewBool(true),
		nonblock:      atomic.NewBool(sysfd.DefaultNonBlock),
		noAccept4:     atomic.NewBool(false),
		connected:     atomic.NewUint64(0),
		wouldBlock:    atomic.NewUint64(0),
		retries:       atomic.NewUint64(0),
		reclaims:      atomic.NewUint64(0),
		failures:      atomic.NewUint64(0),
		resets:        atomic.NewUint64(0),
		waits:         atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resetInterval > 0 {
		e.limiter = catrate.NewLimiter(map[time.Duration]int{e.resetInterval: 1})
	}
	m, err := metric.NewAcceptMetric(e.meter)
	if err != nil {
		e.logger.Warnf("accept metrics disabled: %v", err)
		m, _ = metric.NewAcceptMetric(nil)
	}
	e.metrics = m
	e.logger = e.logger.With("component", "accept")
	return e
}

// SetCloseOnExec toggles FD_CLOEXEC on sockets accepted from now on.
func (e *Engine) SetCloseOnExec(on bool) { e.cloexec.Store(on) }

// CloseOnExec reports the close-on-exec default.
func (e *Engine) CloseOnExec() bool { return e.cloexec.Load() }

// SetNonBlock toggles O_NONBLOCK on sockets accepted from now on.
func (e *Engine) SetNonBlock(on bool) { e.nonblock.Store(on) }

// NonBlock reports the non-blocking default.
func (e *Engine) NonBlock() bool { return e.nonblock.Load() }

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Connected:       e.connected.Load(),
		WouldBlock:      e.wouldBlock.Load(),
		Retries:         e.retries.Load(),
		Reclaims:        e.reclaims.Load(),
		Failures:        e.failures.Load(),
		BlockingResets:  e.resets.Load(),
		Waits:           e.waits.Load(),
		Accept4Fallback: e.noAccept4.Load(),
	}
}

// Accept takes one connection from ln.
//
// It returns Connected with the new descriptor and its unresolved peer,
// WouldBlock (NonBlocking mode only) with a nil error, or Failed with the
// error kind and an *api.Error. The listener is never closed.
func (e *Engine) Accept(ln api.Socket, mode api.AcceptMode) (api.AcceptResult, error) {
	ctx := context.Background()
	if mode == api.NonBlocking {
		if err := e.ensureNonblock(ln.FD); err != nil {
			return e.fail(ctx, ln, err)
		}
	}

	reclaimed := false
	for {
		fd, sa, err := e.accept(ln.FD)
		if err == nil {
			e.connected.Inc()
			e.metrics.Connected(ctx)
			return api.AcceptResult{Status: api.Connected, FD: fd, Peer: sa}, nil
		}

		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return e.fail(ctx, ln, apiErr)
		}

		kind := Classify(err)
		switch {
		case kind == api.KindWouldBlock:
			if mode == api.NonBlocking {
				e.wouldBlock.Inc()
				e.metrics.WouldBlock(ctx)
				return api.AcceptResult{Status: api.WouldBlock}, nil
			}
			if werr := e.awaitBlocking(ln); werr != nil {
				return e.fail(ctx, ln, werr)
			}
		case kind.Transient():
			// An interrupt after a reclaim starts a fresh exhaustion run.
			reclaimed = false
			e.retry(ctx, ln, kind)
		case kind.Exhaustion() && !reclaimed:
			reclaimed = true
			e.reclaims.Inc()
			e.metrics.Reclaim(ctx)
			e.logger.Debugf("accept on %s: %s, reclaiming before retry", ln, kind)
			e.reclaimer.Reclaim()
		default:
			code := api.ErrCodeSyscall
			if kind.Exhaustion() {
				code = api.ErrCodeResourceExhausted
			}
			return e.fail(ctx, ln, api.NewError(code, "accept", err).WithKind(kind))
		}
	}
}

func (e *Engine) retry(ctx context.Context, ln api.Socket, kind api.ErrorKind) {
	e.retries.Inc()
	e.metrics.Retry(ctx, kind.String())
	if e.logger.Enabled(log.DebugLevel) {
		e.logger.Debugf("accept on %s: %s, retrying", ln, kind)
	}
}

func (e *Engine) fail(ctx context.Context, ln api.Socket, err *api.Error) (api.AcceptResult, error) {
	if err.Kind == api.KindNone {
		err.Kind = Classify(err.Err)
	}
	err.WithContext("listener", ln.FD)
	e.failures.Inc()
	e.metrics.Failed(ctx, err.Kind.String())
	e.logger.Errorf("accept on %s failed: %v", ln, err)
	return api.AcceptResult{Status: api.Failed, Kind: err.Kind}, err
}

// accept prefers the combined call and falls back to accept plus separate
// fcntl calls once the platform reports ENOSYS.
func (e *Engine) accept(ln int) (int, unix.Sockaddr, error) {
	flags := api.AcceptFlags{CloseOnExec: e.cloexec.Load(), NonBlock: e.nonblock.Load()}
	if !e.noAccept4.Load() {
		fd, sa, err := e.ops.Accept4(ln, flags)
		if !errors.Is(err, unix.ENOSYS) {
			return fd, sa, err
		}
		if e.noAccept4.CompareAndSwap(false, true) {
			e.logger.Infof("accept4 unavailable, using accept and fcntl")
		}
	}

	fd, sa, err := e.ops.Accept(ln)
	if err != nil {
		return fd, sa, err
	}
	if flags.CloseOnExec {
		if err := e.ops.CloseOnExec(fd); err != nil {
			_ = e.ops.Close(fd)
			return -1, nil, api.NewError(api.ErrCodeSyscall, "fcntl(F_SETFD, FD_CLOEXEC)", err).
				WithKind(Classify(err)).
				WithContext("fd", fd)
		}
	}
	if flags.NonBlock {
		if err := e.ops.SetNonblock(fd, true); err != nil {
			_ = e.ops.Close(fd)
			return -1, nil, api.NewError(api.ErrCodeSyscall, "fcntl(F_SETFL, O_NONBLOCK)", err).
				WithKind(Classify(err)).
				WithContext("fd", fd)
		}
	}
	return fd, sa, nil
}

func (e *Engine) ensureNonblock(fd int) *api.Error {
	on, err := e.ops.Nonblock(fd)
	if err != nil {
		return api.NewError(api.ErrCodeSyscall, "fcntl(F_GETFL)", err).WithKind(Classify(err))
	}
	if on {
		return nil
	}
	if err := e.ops.SetNonblock(fd, true); err != nil {
		return api.NewError(api.ErrCodeSyscall, "fcntl(F_SETFL, O_NONBLOCK)", err).WithKind(Classify(err))
	}
	return nil
}

// awaitBlocking handles a would-block seen by a blocking caller. Once per
// reset interval it clears the listener's O_NONBLOCK flag so the next accept
// sleeps in the kernel; otherwise it parks on the waiter until readable.
func (e *Engine) awaitBlocking(ln api.Socket) *api.Error {
	allowed := e.limiter == nil
	if !allowed {
		_, allowed = e.limiter.Allow(ln)
	}
	if allowed {
		on, err := e.ops.Nonblock(ln.FD)
		if err != nil {
			return api.NewError(api.ErrCodeSyscall, "fcntl(F_GETFL)", err).WithKind(Classify(err))
		}
		if on {
			if err := e.ops.SetNonblock(ln.FD, false); err != nil {
				return api.NewError(api.ErrCodeSyscall, "fcntl(F_SETFL, ~O_NONBLOCK)", err).WithKind(Classify(err))
			}
			e.resets.Inc()
			e.logger.Debugf("accept on %s: cleared O_NONBLOCK for blocking accept", ln)
		}
		return nil
	}

	e.waits.Inc()
	if _, err := e.waiter.WaitReadable(ln.FD, -1); err != nil {
		return api.NewError(api.ErrCodeSyscall, "wait_readable", err).WithKind(Classify(err))
	}
	return nil
}
