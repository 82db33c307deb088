//go:build linux

package sysfd

// DefaultNonBlock is the non-blocking default for accepted sockets.
// Linux keeps accepted sockets blocking.
const DefaultNonBlock = false
