//go:build unix && !linux

package sysfd

// DefaultNonBlock is the non-blocking default for accepted sockets.
const DefaultNonBlock = true
