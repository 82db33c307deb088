// File: accept/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package accept wraps the kernel accept call in a classify-then-branch retry
// loop.
//
// Would-block results are returned to non-blocking callers and absorbed for
// blocking callers: the listener's O_NONBLOCK flag is cleared at most once per
// reset interval, and between resets the caller parks on the injected Waiter
// until the listener is readable. Interrupted, aborted and protocol errors
// are retried without limit. Resource exhaustion triggers one reclaim before
// a single retry. Everything else is surfaced as *api.Error tagged with the
// failing operation.
package accept
