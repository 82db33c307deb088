// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with validated updates and reload propagation.

package control

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-accept/api"
)

// Process-wide toggles understood by the server.
const (
	// KeyCloseOnExec sets FD_CLOEXEC on newly accepted sockets.
	KeyCloseOnExec = "accept.cloexec"
	// KeyNonBlock sets O_NONBLOCK on newly accepted sockets.
	KeyNonBlock = "accept.nonblock"
	// KeyCorkEnabled switches the cork tracker.
	KeyCorkEnabled = "cork.enabled"
)

var boolKeys = map[string]struct{}{
	KeyCloseOnExec: {},
	KeyNonBlock:    {},
	KeyCorkEnabled: {},
}

// ConfigStore is a dynamic key/value map with snapshot reads and reload hooks.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
	hooks  reloadHooks
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig validates and merges new values, then runs the reload hooks.
// Nothing is applied when any known toggle has the wrong type.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	for k, v := range newCfg {
		if _, ok := boolKeys[k]; !ok {
			continue
		}
		if _, ok := v.(bool); !ok {
			return api.NewError(api.ErrCodeInvalidArgument, "config set", api.ErrInvalidArgument).
				WithContext("key", k).
				WithContext("value", fmt.Sprintf("%v", v))
		}
	}
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.mu.Unlock()
	cs.hooks.trigger()
	return nil
}

// OnReload registers a hook called after every successful SetConfig.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.hooks.register(fn)
}

// Bool reads a boolean toggle, returning def when it is unset or not a bool.
func Bool(cs *ConfigStore, key string, def bool) bool {
	v, ok := cs.Get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
