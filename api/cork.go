// File: api/cork.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Write-coalescing (TCP_CORK / TCP_NOPUSH) contracts.

package api

// CorkState is the per-descriptor state of the write-coalescing tracker.
type CorkState int

const (
	// CorkIgnore marks a descriptor that does not participate.
	CorkIgnore CorkState = iota
	// CorkWriter means nothing has been written since the last flush.
	CorkWriter
	// CorkWritten means a write happened since the last flush or read.
	CorkWritten
	// CorkAcceptor marks a listening socket known to cork its children.
	CorkAcceptor
)

func (s CorkState) String() string {
	switch s {
	case CorkIgnore:
		return "ignore"
	case CorkWriter:
		return "writer"
	case CorkWritten:
		return "written"
	case CorkAcceptor:
		return "acceptor"
	default:
		return "unknown"
	}
}

// CoalescingControl manipulates the platform "delay small segments" option.
type CoalescingControl interface {
	// Probe reports whether coalescing is currently enabled on fd.
	// Sockets that cannot carry the option return an error wrapping
	// ErrNotSupported or an EOPNOTSUPP-class errno.
	Probe(fd int) (bool, error)
	// Flush clears and immediately re-sets the option, pushing any
	// partial segment out without disabling coalescing.
	Flush(fd int) error
	// Inherited reports whether accepted sockets inherit the option from
	// their listener. When false every client is probed individually.
	Inherited() bool
}
