//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.
// Registrations are oneshot: after a notification the fd stays in the
// interest set but is disarmed until Rearm.

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

// epollReactor implements api.Reactor using Linux epoll.
type epollReactor struct {
	epfd      int      // epoll file descriptor
	callbacks sync.Map // map[uintptr]api.FDCallback
	closeOnce sync.Once
}

// New constructs the platform reactor.
func New() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{epfd: epfd}, nil
}

func toEpoll(events api.FDEventType) uint32 {
	ev := uint32(unix.EPOLLONESHOT)
	if events&api.EventRead != 0 {
		ev |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if events&api.EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register adds fd to the epoll watch list, armed for one notification.
func (r *epollReactor) Register(fd uintptr, events api.FDEventType, cb api.FDCallback) error {
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	r.callbacks.Store(fd, cb)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		r.callbacks.Delete(fd)
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Rearm re-enables fd after a notification.
func (r *epollReactor) Rearm(fd uintptr, events api.FDEventType) error {
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Unregister removes fd from the epoll watch list.
func (r *epollReactor) Unregister(fd uintptr) error {
	r.callbacks.Delete(fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Poll blocks and waits for events on registered file descriptors.
// timeoutMs < 0 means block infinitely.
func (r *epollReactor) Poll(timeoutMs int) error {
	const maxEvents = 128
	var events [maxEvents]unix.EpollEvent
	timeout := timeoutMs
	if timeout < 0 {
		timeout = -1
	}

	n, err := unix.EpollWait(r.epfd, events[:], timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := events[i]
		fd := uintptr(ev.Fd)

		val, ok := r.callbacks.Load(fd)
		if !ok {
			continue
		}

		var eventType api.FDEventType
		if ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			eventType |= api.EventRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			eventType |= api.EventWrite
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			eventType |= api.EventError
		}

		cb, _ := val.(api.FDCallback)
		// A panicking callback must not stop the loop.
		func() {
			defer func() { _ = recover() }()
			cb(fd, eventType)
		}()
	}

	return nil
}

// Close releases the epoll file descriptor.
func (r *epollReactor) Close() error {
	err := api.ErrClosed
	r.closeOnce.Do(func() {
		err = unix.Close(r.epfd)
	})
	return err
}
