//go:build unix

// File: waiter/poll.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package waiter

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

// Poll waits with a blocking poll(2) call on the caller's thread.
type Poll struct{}

var _ api.Waiter = (*Poll)(nil)

// NewPoll returns the blocking waiter.
func NewPoll() *Poll { return &Poll{} }

func (*Poll) WaitReadable(fd int, timeout time.Duration) (bool, error) {
	return pollWait(fd, unix.POLLIN, timeout)
}

func (*Poll) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return pollWait(fd, unix.POLLOUT, timeout)
}

// pollWait reports ready for error and hangup conditions as well; the next
// I/O call on fd surfaces them.
func pollWait(fd int, events int16, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		ms := -1
		if timeout >= 0 {
			rem := time.Until(deadline)
			if rem < 0 {
				rem = 0
			}
			ms = int((rem + time.Millisecond - 1) / time.Millisecond)
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return false, unix.EBADF
		}
		return true, nil
	}
}
