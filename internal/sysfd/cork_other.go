//go:build unix && !(linux || darwin || freebsd)

// File: internal/sysfd/cork_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub coalescing backend for platforms without TCP_CORK or TCP_NOPUSH.

package sysfd

import "github.com/momentics/hioload-accept/api"

type unsupportedControl struct{}

// NewCoalescingControl returns a backend that degrades every socket to Ignore.
func NewCoalescingControl() api.CoalescingControl {
	return unsupportedControl{}
}

func (unsupportedControl) Probe(fd int) (bool, error) {
	return false, api.NewError(api.ErrCodeNotSupported, "coalescing probe", api.ErrNotSupported).
		WithKind(api.KindUnsupported).
		WithContext("fd", fd)
}

func (unsupportedControl) Flush(int) error { return api.ErrNotSupported }

func (unsupportedControl) Inherited() bool { return false }

// SetCork is not available on this platform.
func SetCork(int, bool) error { return api.ErrNotSupported }
