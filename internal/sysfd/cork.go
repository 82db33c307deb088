//go:build linux || darwin || freebsd

// File: internal/sysfd/cork.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared getsockopt/setsockopt plumbing for the coalescing backends.

package sysfd

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

type optionControl struct {
	opt       int
	name      string
	inherited bool
}

// Probe reads the option. Errors are returned as *api.Error tagged with the
// getsockopt operation; unsupported sockets keep their errno for classification.
func (c optionControl) Probe(fd int) (bool, error) {
	v, err := unix.GetsockoptInt(fd, unix.IPPROTO_TCP, c.opt)
	if err != nil {
		code := api.ErrCodeSyscall
		kind := api.KindOther
		if Unsupported(err) {
			code, kind = api.ErrCodeNotSupported, api.KindUnsupported
		}
		return false, api.NewError(code, "getsockopt(IPPROTO_TCP, "+c.name+")", err).
			WithKind(kind).
			WithContext("fd", fd)
	}
	return v != 0, nil
}

// Flush uncorks and immediately recorks fd.
func (c optionControl) Flush(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, c.opt, 0); err != nil {
		return api.NewError(api.ErrCodeSyscall, "setsockopt(IPPROTO_TCP, "+c.name+", 0)", err).
			WithContext("fd", fd)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, c.opt, 1); err != nil {
		return api.NewError(api.ErrCodeSyscall, "setsockopt(IPPROTO_TCP, "+c.name+", 1)", err).
			WithContext("fd", fd)
	}
	return nil
}

func (c optionControl) Inherited() bool {
	return c.inherited
}

// SetCork enables or disables the coalescing option on fd, typically on a
// listener before accepting.
func SetCork(fd int, on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, corkOption, v); err != nil {
		return api.NewError(api.ErrCodeSyscall, "setsockopt(IPPROTO_TCP, "+corkName+")", err).
			WithContext("fd", fd)
	}
	return nil
}
