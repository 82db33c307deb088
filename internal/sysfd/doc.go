// File: internal/sysfd/doc.go
// Package sysfd
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw descriptor primitives for hioload-accept: accept(2)/accept4(2), descriptor
// flags, peer lookup and the per-platform write-coalescing option (TCP_CORK on
// Linux, TCP_NOPUSH on Darwin and FreeBSD). Platform variants are strictly
// separated by build tags; unsupported platforms report api.ErrNotSupported.

package sysfd
