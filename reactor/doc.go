// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the oneshot readiness reactor that backs the
// cooperative waiter. Linux uses epoll; other platforms report
// api.ErrNotSupported.
package reactor
