// control/hotreload.go
// Reload hook list shared by ConfigStore instances. Hooks run synchronously,
// in registration order, outside the store lock.

package control

import "sync"

type reloadHooks struct {
	mu    sync.Mutex
	hooks []func()
}

func (r *reloadHooks) register(fn func()) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

func (r *reloadHooks) trigger() {
	r.mu.Lock()
	hooks := append([]func(){}, r.hooks...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
