// File: waiter/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package waiter implements api.Waiter.
//
// Poll parks the calling goroutine's thread in poll(2). Cooperative parks
// goroutines on a channel and lets a single reactor goroutine wake them, one
// waiter per readiness event, so many goroutines waiting on one listener do
// not all wake for a single connection.
package waiter
