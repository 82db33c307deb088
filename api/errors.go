// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-accept.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrNotSupported      = errors.New("operation not supported")
	ErrClosed            = errors.New("resource is closed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnsupportedFamily = errors.New("unsupported address family")
	ErrAlreadyRunning    = errors.New("server already running")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeSyscall
	ErrCodeInternal
)

// ErrorKind classifies an errno returned by the host socket primitives.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindWouldBlock
	KindInterrupted
	KindAborted
	KindProtocol
	KindNoBuffers
	KindNoMemory
	KindFDTableFull
	KindUnsupported
	KindOther
)

var kindNames = [...]string{
	KindNone:        "none",
	KindWouldBlock:  "would-block",
	KindInterrupted: "interrupted",
	KindAborted:     "aborted",
	KindProtocol:    "protocol",
	KindNoBuffers:   "no-buffers",
	KindNoMemory:    "no-memory",
	KindFDTableFull: "fd-table-full",
	KindUnsupported: "unsupported",
	KindOther:       "other",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Transient reports kinds that are retried without limit and never surfaced.
func (k ErrorKind) Transient() bool {
	return k == KindInterrupted || k == KindAborted || k == KindProtocol
}

// Exhaustion reports resource-exhaustion kinds (one reclaim-and-retry).
func (k ErrorKind) Exhaustion() bool {
	return k == KindNoMemory || k == KindFDTableFull || k == KindNoBuffers
}

// Error represents a structured error with code, failing operation and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Kind    ErrorKind
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrResourceExhausted for errors carrying ErrCodeResourceExhausted,
// whatever errno they wrap.
func (e *Error) Is(target error) bool {
	return target == ErrResourceExhausted && e.Code == ErrCodeResourceExhausted
}

// NewError creates a new structured error for the failing operation op.
func NewError(code ErrorCode, op string, err error) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Err:     err,
		Context: make(map[string]any),
	}
}

// WithKind records the classified errno kind.
func (e *Error) WithKind(kind ErrorKind) *Error {
	e.Kind = kind
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
