// Package api
// Author: momentics
//
// Live debug probes.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState evaluates every probe and returns the results by name.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a named probe.
	RegisterProbe(name string, fn func() any)
}
