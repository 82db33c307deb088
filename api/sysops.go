// File: api/sysops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Host socket primitives consumed by the accept engine.

package api

import "golang.org/x/sys/unix"

// AcceptFlags selects the descriptor flags applied to an accepted socket.
type AcceptFlags struct {
	CloseOnExec bool
	NonBlock    bool
}

// SocketOps is the accept primitive and flag manipulation the engine drives.
// Errors are raw errnos (unix.Errno) so the engine can classify them.
type SocketOps interface {
	// Accept4 accepts and applies flags atomically. Platforms without a
	// combined call return unix.ENOSYS.
	Accept4(fd int, flags AcceptFlags) (int, unix.Sockaddr, error)
	// Accept is the plain accept(2) fallback.
	Accept(fd int) (int, unix.Sockaddr, error)
	// SetNonblock sets or clears O_NONBLOCK.
	SetNonblock(fd int, nonblocking bool) error
	// Nonblock reports whether O_NONBLOCK is set.
	Nonblock(fd int) (bool, error)
	// CloseOnExec sets FD_CLOEXEC.
	CloseOnExec(fd int) error
	// Getpeername returns the peer address of a connected socket.
	Getpeername(fd int) (unix.Sockaddr, error)
	// Close releases a descriptor the engine gave up on.
	Close(fd int) error
}

// Reclaimer releases host resources before a retry after resource exhaustion.
type Reclaimer interface {
	Reclaim()
}

// ReclaimFunc adapts a plain function to Reclaimer.
type ReclaimFunc func()

// Reclaim calls f.
func (f ReclaimFunc) Reclaim() { f() }
