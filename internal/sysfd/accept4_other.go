//go:build unix && !(linux || freebsd || netbsd || openbsd || dragonfly)

// File: internal/sysfd/accept4_other.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without accept4(2): the engine falls back to accept + fcntl.

package sysfd

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

func accept4(int, api.AcceptFlags) (int, unix.Sockaddr, error) {
	return -1, nil, unix.ENOSYS
}
