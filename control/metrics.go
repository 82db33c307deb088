// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Registry the server publishes accept and cork counters into. Writers copy
// the current map and swap it in; readers never block.

package control

import (
	"maps"
	"sync"
	"time"

	"go.uber.org/atomic"
)

type metricsSnapshot struct {
	values  map[string]any
	updated time.Time
	gen     uint64
}

// MetricsRegistry holds the last published value of every metric.
type MetricsRegistry struct {
	wmu  sync.Mutex
	snap *atomic.Pointer[metricsSnapshot]
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		snap: atomic.NewPointer(&metricsSnapshot{values: map[string]any{}}),
	}
}

// Set publishes a single value.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.SetAll(map[string]any{key: value})
}

// SetAll publishes a batch as one generation.
func (mr *MetricsRegistry) SetAll(values map[string]any) {
	mr.wmu.Lock()
	defer mr.wmu.Unlock()
	cur := mr.snap.Load()
	next := &metricsSnapshot{
		values:  maps.Clone(cur.values),
		updated: time.Now(),
		gen:     cur.gen + 1,
	}
	maps.Copy(next.values, values)
	mr.snap.Store(next)
}

// Updated returns the time of the last publish, zero before the first.
func (mr *MetricsRegistry) Updated() time.Time {
	return mr.snap.Load().updated
}

// Generation counts publishes.
func (mr *MetricsRegistry) Generation() uint64 {
	return mr.snap.Load().gen
}

// GetSnapshot returns a copy of the latest values.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	return maps.Clone(mr.snap.Load().values)
}
