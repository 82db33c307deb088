// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-accept/api"
)

// WaitCall is one recorded wait.
type WaitCall struct {
	FD       int
	Writable bool
	Timeout  time.Duration
}

// Waiter records waits and returns immediately as ready, unless a hook
// overrides the outcome.
type Waiter struct {
	mu    sync.Mutex
	calls []WaitCall
	hook  func(WaitCall) (bool, error)
}

var _ api.Waiter = (*Waiter)(nil)

// NewWaiter creates a Waiter; hook may be nil.
func NewWaiter(hook func(WaitCall) (bool, error)) *Waiter {
	return &Waiter{hook: hook}
}

func (w *Waiter) WaitReadable(fd int, timeout time.Duration) (bool, error) {
	return w.wait(WaitCall{FD: fd, Timeout: timeout})
}

func (w *Waiter) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return w.wait(WaitCall{FD: fd, Writable: true, Timeout: timeout})
}

func (w *Waiter) wait(c WaitCall) (bool, error) {
	w.mu.Lock()
	w.calls = append(w.calls, c)
	hook := w.hook
	w.mu.Unlock()
	if hook != nil {
		return hook(c)
	}
	return true, nil
}

// Calls returns the recorded waits.
func (w *Waiter) Calls() []WaitCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]WaitCall(nil), w.calls...)
}
