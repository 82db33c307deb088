//go:build unix

// File: internal/sysfd/sysfd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Host implementation of api.SocketOps over golang.org/x/sys/unix.

package sysfd

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

// Ops implements api.SocketOps with direct system calls.
type Ops struct{}

var _ api.SocketOps = Ops{}

// Accept4 accepts with flags applied atomically, or returns unix.ENOSYS
// where the platform lacks accept4(2).
func (Ops) Accept4(fd int, flags api.AcceptFlags) (int, unix.Sockaddr, error) {
	return accept4(fd, flags)
}

// Accept is the plain accept(2).
func (Ops) Accept(fd int) (int, unix.Sockaddr, error) {
	return unix.Accept(fd)
}

// SetNonblock sets or clears O_NONBLOCK on fd.
func (Ops) SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

// Nonblock reports whether O_NONBLOCK is set on fd.
func (Ops) Nonblock(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.O_NONBLOCK != 0, nil
}

// CloseOnExec sets FD_CLOEXEC on fd.
func (Ops) CloseOnExec(fd int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
	return err
}

// Getpeername returns the remote address of a connected socket.
func (Ops) Getpeername(fd int) (unix.Sockaddr, error) {
	return unix.Getpeername(fd)
}

// Close closes fd.
func (Ops) Close(fd int) error {
	return unix.Close(fd)
}

// CloseOnExecSet reports whether FD_CLOEXEC is set on fd.
func CloseOnExecSet(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.FD_CLOEXEC != 0, nil
}

// Unsupported reports errnos meaning "this option does not apply to this socket type".
// ENOTSUP aliases EOPNOTSUPP on Linux.
func Unsupported(err error) bool {
	return errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.ENOPROTOOPT) ||
		errors.Is(err, api.ErrNotSupported)
}
