// File: api/waiter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness wait capability injected into the accept engine and connections.

package api

import "time"

// Waiter suspends the calling goroutine until fd is ready.
// A negative timeout waits forever. The bool result is false on timeout.
type Waiter interface {
	WaitReadable(fd int, timeout time.Duration) (bool, error)
	WaitWritable(fd int, timeout time.Duration) (bool, error)
}
