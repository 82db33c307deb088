//go:build unix

// File: waiter/cooperative.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package waiter

import (
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/log"
	"github.com/momentics/hioload-accept/reactor"
)

const defaultPollInterval = 50 * time.Millisecond

type parked struct {
	ch        chan error
	woken     bool
	cancelled bool
}

type fdWaiters struct {
	registered bool
	read       *queue.Queue // of *parked, FIFO
	write      *queue.Queue
}

// Cooperative parks goroutines until a reactor reports readiness.
type Cooperative struct {
	r            api.Reactor
	logger       log.Logger
	pollInterval time.Duration

	mu     sync.Mutex
	fds    map[int]*fdWaiters
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

var _ api.Waiter = (*Cooperative)(nil)

// CooperativeOption customizes a Cooperative waiter.
type CooperativeOption func(*Cooperative)

// WithReactor injects the readiness source. The waiter takes ownership.
func WithReactor(r api.Reactor) CooperativeOption {
	return func(c *Cooperative) {
		c.r = r
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) CooperativeOption {
	return func(c *Cooperative) {
		c.logger = l
	}
}

// WithPollInterval bounds how long the reactor goroutine blocks before
// checking for Close.
func WithPollInterval(d time.Duration) CooperativeOption {
	return func(c *Cooperative) {
		c.pollInterval = d
	}
}

// NewCooperative starts the reactor goroutine. Without WithReactor the
// platform reactor is created; it is unavailable outside Linux.
func NewCooperative(opts ...CooperativeOption) (*Cooperative, error) {
	c := &Cooperative{
		logger:       log.DiscardLogger,
		pollInterval: defaultPollInterval,
		fds:          make(map[int]*fdWaiters),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.r == nil {
		r, err := reactor.New()
		if err != nil {
			return nil, err
		}
		c.r = r
	}
	c.wg.Add(1)
	go c.loop()
	return c, nil
}

func (c *Cooperative) loop() {
	defer c.wg.Done()
	ms := int(c.pollInterval / time.Millisecond)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		if err := c.r.Poll(ms); err != nil {
			c.logger.Errorf("waiter reactor poll: %v", err)
			select {
			case <-c.done:
				return
			case <-time.After(c.pollInterval):
			}
		}
	}
}

func (c *Cooperative) WaitReadable(fd int, timeout time.Duration) (bool, error) {
	return c.wait(fd, false, timeout)
}

func (c *Cooperative) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return c.wait(fd, true, timeout)
}

func (c *Cooperative) wait(fd int, write bool, timeout time.Duration) (bool, error) {
	if timeout == 0 {
		if write {
			return NewPoll().WaitWritable(fd, 0)
		}
		return NewPoll().WaitReadable(fd, 0)
	}

	p := &parked{ch: make(chan error, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, api.ErrClosed
	}
	fw := c.fds[fd]
	if fw == nil {
		fw = &fdWaiters{read: queue.New(), write: queue.New()}
		c.fds[fd] = fw
	}
	if write {
		fw.write.Add(p)
	} else {
		fw.read.Add(p)
	}
	err := c.arm(fd, fw)
	if err != nil {
		p.cancelled = true
	}
	c.mu.Unlock()
	if err != nil {
		return false, err
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case err := <-p.ch:
		return err == nil, err
	case <-timer:
	}

	c.mu.Lock()
	if p.woken {
		c.mu.Unlock()
		err := <-p.ch
		return err == nil, err
	}
	p.cancelled = true
	c.mu.Unlock()
	return false, nil
}

// arm registers or rearms fd for the directions that still have live waiters.
// Called with c.mu held.
func (c *Cooperative) arm(fd int, fw *fdWaiters) error {
	var events api.FDEventType
	if prune(fw.read) > 0 {
		events |= api.EventRead
	}
	if prune(fw.write) > 0 {
		events |= api.EventWrite
	}
	if events == 0 {
		return nil
	}
	if fw.registered {
		if err := c.r.Rearm(uintptr(fd), events); err == nil {
			return nil
		}
		// The fd was closed and reopened behind our back; start over.
		_ = c.r.Unregister(uintptr(fd))
		fw.registered = false
	}
	if err := c.r.Register(uintptr(fd), events, c.dispatch); err != nil {
		return err
	}
	fw.registered = true
	return nil
}

// prune drops cancelled waiters from the head of q and returns its length.
func prune(q *queue.Queue) int {
	for q.Length() > 0 && q.Peek().(*parked).cancelled {
		q.Remove()
	}
	return q.Length()
}

func wakeOne(q *queue.Queue, err error) {
	if prune(q) == 0 {
		return
	}
	p := q.Remove().(*parked)
	p.woken = true
	p.ch <- err
}

func wakeAll(q *queue.Queue, err error) {
	for q.Length() > 0 {
		p := q.Remove().(*parked)
		if p.cancelled {
			continue
		}
		p.woken = true
		p.ch <- err
	}
}

// dispatch runs on the reactor goroutine after a oneshot notification.
func (c *Cooperative) dispatch(fd uintptr, events api.FDEventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fw := c.fds[int(fd)]
	if fw == nil || c.closed {
		return
	}
	if events&(api.EventRead|api.EventError) != 0 {
		wakeOne(fw.read, nil)
	}
	if events&(api.EventWrite|api.EventError) != 0 {
		wakeOne(fw.write, nil)
	}
	if err := c.arm(int(fd), fw); err != nil {
		c.logger.Errorf("waiter rearm fd=%d: %v", fd, err)
		wakeAll(fw.read, err)
		wakeAll(fw.write, err)
	}
}

// Forget unregisters fd and wakes its waiters with api.ErrClosed. Call it
// before closing a descriptor that may have parked waiters.
func (c *Cooperative) Forget(fd int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fw := c.fds[fd]
	if fw == nil {
		return nil
	}
	delete(c.fds, fd)
	wakeAll(fw.read, api.ErrClosed)
	wakeAll(fw.write, api.ErrClosed)
	if fw.registered {
		return c.r.Unregister(uintptr(fd))
	}
	return nil
}

// Parked reports how many live waiters are queued on fd.
func (c *Cooperative) Parked(fd int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	fw := c.fds[fd]
	if fw == nil {
		return 0
	}
	return live(fw.read) + live(fw.write)
}

func live(q *queue.Queue) int {
	n := 0
	for i := 0; i < q.Length(); i++ {
		if !q.Get(i).(*parked).cancelled {
			n++
		}
	}
	return n
}

// Close wakes every waiter with api.ErrClosed, stops the reactor goroutine
// and closes the reactor.
func (c *Cooperative) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ErrClosed
	}
	c.closed = true
	var errs error
	for fd, fw := range c.fds {
		wakeAll(fw.read, api.ErrClosed)
		wakeAll(fw.write, api.ErrClosed)
		if fw.registered {
			if err := c.r.Unregister(uintptr(fd)); err != nil && !errors.Is(err, api.ErrClosed) {
				errs = multierr.Append(errs, err)
			}
		}
	}
	c.fds = make(map[int]*fdWaiters)
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	return multierr.Append(errs, c.r.Close())
}
