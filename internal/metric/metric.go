// File: internal/metric/metric.go
// Package metric
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OpenTelemetry instruments for the accept engine and the cork tracker.
// A nil meter falls back to the no-op provider.

package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/momentics/hioload-accept"

// Meter returns m, or a no-op meter when m is nil.
func Meter(m metric.Meter) metric.Meter {
	if m == nil {
		return noop.NewMeterProvider().Meter(instrumentationName)
	}
	return m
}

// AcceptMetric groups the accept engine counters.
type AcceptMetric struct {
	connected  metric.Int64Counter
	wouldBlock metric.Int64Counter
	retry      metric.Int64Counter
	reclaim    metric.Int64Counter
	failed     metric.Int64Counter
}

// NewAcceptMetric creates the accept instruments on meter.
func NewAcceptMetric(meter metric.Meter) (*AcceptMetric, error) {
	meter = Meter(meter)
	m := new(AcceptMetric)
	var err error
	if m.connected, err = meter.Int64Counter(
		"accept_connected_total",
		metric.WithDescription("Connections returned by Accept"),
	); err != nil {
		return nil, fmt.Errorf("failed to create connected instrument, %v", err)
	}
	if m.wouldBlock, err = meter.Int64Counter(
		"accept_would_block_total",
		metric.WithDescription("Non-blocking Accept calls that found an empty queue"),
	); err != nil {
		return nil, fmt.Errorf("failed to create wouldBlock instrument, %v", err)
	}
	if m.retry, err = meter.Int64Counter(
		"accept_retry_total",
		metric.WithDescription("Accept attempts retried after a recoverable error"),
	); err != nil {
		return nil, fmt.Errorf("failed to create retry instrument, %v", err)
	}
	if m.reclaim, err = meter.Int64Counter(
		"accept_reclaim_total",
		metric.WithDescription("Resource reclaims triggered by exhaustion"),
	); err != nil {
		return nil, fmt.Errorf("failed to create reclaim instrument, %v", err)
	}
	if m.failed, err = meter.Int64Counter(
		"accept_failed_total",
		metric.WithDescription("Accept calls that surfaced an error"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failed instrument, %v", err)
	}
	return m, nil
}

func (m *AcceptMetric) Connected(ctx context.Context)  { m.connected.Add(ctx, 1) }
func (m *AcceptMetric) WouldBlock(ctx context.Context) { m.wouldBlock.Add(ctx, 1) }
func (m *AcceptMetric) Reclaim(ctx context.Context)    { m.reclaim.Add(ctx, 1) }

// Retry records a retried attempt labelled by error kind.
func (m *AcceptMetric) Retry(ctx context.Context, kind string) {
	m.retry.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Failed records a surfaced error labelled by error kind.
func (m *AcceptMetric) Failed(ctx context.Context, kind string) {
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// CorkMetric groups the cork tracker counters.
type CorkMetric struct {
	flush metric.Int64Counter
	probe metric.Int64Counter
}

// NewCorkMetric creates the cork instruments on meter.
func NewCorkMetric(meter metric.Meter) (*CorkMetric, error) {
	meter = Meter(meter)
	m := new(CorkMetric)
	var err error
	if m.flush, err = meter.Int64Counter(
		"cork_flush_total",
		metric.WithDescription("Uncork/recork flushes issued on read after write"),
	); err != nil {
		return nil, fmt.Errorf("failed to create flush instrument, %v", err)
	}
	if m.probe, err = meter.Int64Counter(
		"cork_probe_total",
		metric.WithDescription("Coalescing option probes"),
	); err != nil {
		return nil, fmt.Errorf("failed to create probe instrument, %v", err)
	}
	return m, nil
}

func (m *CorkMetric) Flush(ctx context.Context) { m.flush.Add(ctx, 1) }

// Probe records a probe labelled by its outcome.
func (m *CorkMetric) Probe(ctx context.Context, result string) {
	m.probe.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
