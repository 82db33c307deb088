// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection layer.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and validated updates for the accept and cork toggles
//   - Reload observers that push changed toggles into running components
//   - A metrics registry the server publishes engine and tracker counters into
//   - Debug probe registration, including platform capability probes
//
// This package is build-tag-partitioned for the platform probes.
package control
