// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-accept/api"
)

// OptionCall is one recorded socket-option operation.
type OptionCall struct {
	Op string // "probe" or "flush"
	FD int
}

// Coalescing is an in-memory api.CoalescingControl recording every call.
type Coalescing struct {
	mu        sync.Mutex
	corked    map[int]bool
	probeErr  map[int]error
	flushErr  error
	inherited bool
	calls     []OptionCall
}

var _ api.CoalescingControl = (*Coalescing)(nil)

// NewCoalescing creates a control whose children inherit the option when inherited is true.
func NewCoalescing(inherited bool) *Coalescing {
	return &Coalescing{
		corked:    make(map[int]bool),
		probeErr:  make(map[int]error),
		inherited: inherited,
	}
}

// SetCorked sets the option value Probe will report for fd.
func (c *Coalescing) SetCorked(fd int, on bool) {
	c.mu.Lock()
	c.corked[fd] = on
	c.mu.Unlock()
}

// FailProbe makes Probe(fd) return err.
func (c *Coalescing) FailProbe(fd int, err error) {
	c.mu.Lock()
	c.probeErr[fd] = err
	c.mu.Unlock()
}

// FailFlush makes every Flush return err.
func (c *Coalescing) FailFlush(err error) {
	c.mu.Lock()
	c.flushErr = err
	c.mu.Unlock()
}

func (c *Coalescing) Probe(fd int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, OptionCall{Op: "probe", FD: fd})
	if err := c.probeErr[fd]; err != nil {
		return false, err
	}
	return c.corked[fd], nil
}

func (c *Coalescing) Flush(fd int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, OptionCall{Op: "flush", FD: fd})
	return c.flushErr
}

func (c *Coalescing) Inherited() bool { return c.inherited }

// Calls returns every recorded operation in order.
func (c *Coalescing) Calls() []OptionCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OptionCall(nil), c.calls...)
}

// Count returns how many calls of op were recorded.
func (c *Coalescing) Count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls.
func (c *Coalescing) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}
