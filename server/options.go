// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/momentics/hioload-accept/accept"
	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/cork"
	"github.com/momentics/hioload-accept/log"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the logger shared by the server, engine and tracker.
func WithLogger(l log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMeter sets the OpenTelemetry meter for engine and tracker instruments.
func WithMeter(m otelmetric.Meter) ServerOption {
	return func(s *Server) {
		s.engineOpts = append(s.engineOpts, accept.WithMeter(m))
		s.trackerOpts = append(s.trackerOpts, cork.WithMeter(m))
	}
}

// WithWaiter replaces the waiter used by accept loops and connections.
func WithWaiter(w api.Waiter) ServerOption {
	return func(s *Server) {
		s.waiter = w
	}
}

// WithAcceptOptions appends engine options.
func WithAcceptOptions(opts ...accept.Option) ServerOption {
	return func(s *Server) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithCorkOptions appends tracker options.
func WithCorkOptions(opts ...cork.Option) ServerOption {
	return func(s *Server) {
		s.trackerOpts = append(s.trackerOpts, opts...)
	}
}
