// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for event-driven IO reactors
// used to multiplex readiness notifications for parked waiters.

package api

// FDEventType is a bitmask of readiness conditions.
type FDEventType uint32

const (
	EventRead FDEventType = 1 << iota
	EventWrite
	EventError
)

// FDCallback receives readiness notifications for a registered descriptor.
type FDCallback func(fd uintptr, events FDEventType)

// Reactor defines the common interface for an event-loop that dispatches I/O events
// regardless of specific polling mechanism used.
type Reactor interface {
	// Register associates fd with the reactor; cb fires once per readiness edge.
	Register(fd uintptr, events FDEventType, cb FDCallback) error

	// Rearm re-enables a registered fd after a oneshot notification.
	Rearm(fd uintptr, events FDEventType) error

	// Unregister removes fd from the interest set.
	Unregister(fd uintptr) error

	// Poll blocks up to timeoutMs (negative blocks indefinitely) and dispatches events.
	Poll(timeoutMs int) error

	// Close must cleanup the internal poller backend
	Close() error
}
