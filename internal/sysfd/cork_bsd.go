//go:build darwin || freebsd

// File: internal/sysfd/cork_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP_NOPUSH backend. Inheritance by accepted sockets is not guaranteed here,
// so the tracker probes every client instead of trusting the listener.

package sysfd

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

const (
	corkOption = unix.TCP_NOPUSH
	corkName   = "TCP_NOPUSH"
)

// NewCoalescingControl returns the platform write-coalescing backend.
func NewCoalescingControl() api.CoalescingControl {
	return optionControl{opt: corkOption, name: corkName, inherited: false}
}
