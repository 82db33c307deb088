//go:build linux || freebsd || netbsd || openbsd || dragonfly

// File: internal/sysfd/accept4_unix.go
// Author: momentics <momentics@gmail.com>
//
// accept4(2) for platforms that provide it.

package sysfd

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

func accept4(fd int, flags api.AcceptFlags) (int, unix.Sockaddr, error) {
	var f int
	if flags.CloseOnExec {
		f |= unix.SOCK_CLOEXEC
	}
	if flags.NonBlock {
		f |= unix.SOCK_NONBLOCK
	}
	return unix.Accept4(fd, f)
}
