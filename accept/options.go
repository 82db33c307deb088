// File: accept/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package accept

import (
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/log"
)

// DefaultBlockingResetInterval bounds how often a blocking Accept clears a
// listener's O_NONBLOCK flag.
const DefaultBlockingResetInterval = 5 * time.Second

// Option customizes an Engine.
type Option func(*Engine)

// WithOps replaces the host socket primitives.
func WithOps(ops api.SocketOps) Option {
	return func(e *Engine) {
		e.ops = ops
	}
}

// WithWaiter sets the primitive used to park blocking callers.
func WithWaiter(w api.Waiter) Option {
	return func(e *Engine) {
		e.waiter = w
	}
}

// WithReclaimer sets the hook run once before retrying after exhaustion.
func WithReclaimer(r api.Reclaimer) Option {
	return func(e *Engine) {
		e.reclaimer = r
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMeter sets the OpenTelemetry meter.
func WithMeter(m otelmetric.Meter) Option {
	return func(e *Engine) {
		e.meter = m
	}
}

// WithCloseOnExec sets the close-on-exec default for accepted sockets.
func WithCloseOnExec(on bool) Option {
	return func(e *Engine) {
		e.cloexec.Store(on)
	}
}

// WithNonBlock sets the non-blocking default for accepted sockets.
func WithNonBlock(on bool) Option {
	return func(e *Engine) {
		e.nonblock.Store(on)
	}
}

// WithBlockingResetInterval overrides DefaultBlockingResetInterval.
// A non-positive interval lets every would-block clear the flag.
// A positive interval starts the limiter's cleanup goroutine on the first
// blocking reset; it exits on its own once the tracked listeners age out of
// the window and cannot be stopped earlier.
func WithBlockingResetInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.resetInterval = d
	}
}
