// File: cork/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cork

import (
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/momentics/hioload-accept/log"
)

// Option customizes a Tracker.
type Option func(*Tracker)

// WithEnabled sets the initial state of the tracker switch.
func WithEnabled(on bool) Option {
	return func(t *Tracker) {
		t.enabled.Store(on)
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithMeter sets the OpenTelemetry meter.
func WithMeter(m otelmetric.Meter) Option {
	return func(t *Tracker) {
		t.meter = m
	}
}
