// File: accept/classify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package accept

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/internal/sysfd"
)

// Classify maps an accept error onto the retry taxonomy.
// EWOULDBLOCK aliases EAGAIN on every supported platform.
func Classify(err error) api.ErrorKind {
	switch {
	case err == nil:
		return api.KindNone
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
		return api.KindWouldBlock
	case errors.Is(err, unix.EINTR):
		return api.KindInterrupted
	case errors.Is(err, unix.ECONNABORTED):
		return api.KindAborted
	case errors.Is(err, unix.EPROTO):
		return api.KindProtocol
	case errors.Is(err, unix.ENOBUFS):
		return api.KindNoBuffers
	case errors.Is(err, unix.ENOMEM):
		return api.KindNoMemory
	case errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE):
		return api.KindFDTableFull
	case sysfd.Unsupported(err):
		return api.KindUnsupported
	default:
		return api.KindOther
	}
}
