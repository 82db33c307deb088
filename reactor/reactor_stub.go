//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-accept/api"
)

// New returns api.ErrNotSupported outside Linux; callers fall back to the
// poll(2) waiter.
func New() (api.Reactor, error) {
	return nil, fmt.Errorf("reactor: %w", api.ErrNotSupported)
}
