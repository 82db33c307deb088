// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants for accept and cork handling.

package api

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HandleID identifies the owner of a descriptor number. Two handles that happen
// to share an fd number (after close and reuse) carry different IDs.
type HandleID uint64

// Socket is a descriptor plus the identity of the handle owning it.
type Socket struct {
	FD int
	ID HandleID
}

func (s Socket) String() string {
	return fmt.Sprintf("fd=%d id=%d", s.FD, s.ID)
}

// AcceptMode selects how Accept behaves on an empty listen queue.
type AcceptMode int

const (
	// Blocking suspends the caller until a connection arrives.
	Blocking AcceptMode = iota
	// NonBlocking returns WouldBlock immediately on an empty queue.
	NonBlocking
)

func (m AcceptMode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "nonblocking"
	default:
		return "unknown"
	}
}

// AcceptStatus enumerates the outcome of one Accept call.
type AcceptStatus int

const (
	Connected AcceptStatus = iota
	WouldBlock
	Failed
)

func (s AcceptStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case WouldBlock:
		return "would-block"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// AcceptResult is produced fresh by every Accept call.
// FD and Peer are only meaningful when Status is Connected; Kind only when Failed.
// Peer is left unresolved: callers format it on demand.
type AcceptResult struct {
	Status AcceptStatus
	FD     int
	Peer   unix.Sockaddr
	Kind   ErrorKind
}
