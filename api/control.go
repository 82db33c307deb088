// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control manages dynamic config and runtime metrics.
// The server keeps its toggles under "accept.cloexec", "accept.nonblock" and
// "cork.enabled"; SetConfig rejects non-bool values for those keys and runs
// the OnReload hooks after every accepted change. Stats merges config,
// published accept/cork counters and "debug."-prefixed probe output.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	OnReload(fn func())
	RegisterDebugProbe(name string, fn func() any)
}
