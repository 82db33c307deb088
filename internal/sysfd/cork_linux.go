//go:build linux

// File: internal/sysfd/cork_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux TCP_CORK backend. Accepted sockets inherit TCP_CORK from a corked
// listener, so one probe on the listener covers all of its children.

package sysfd

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

const (
	corkOption = unix.TCP_CORK
	corkName   = "TCP_CORK"
)

// NewCoalescingControl returns the platform write-coalescing backend.
func NewCoalescingControl() api.CoalescingControl {
	return optionControl{opt: corkOption, name: corkName, inherited: true}
}
