// File: cork/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package cork tracks per-descriptor write-coalescing state.
//
// A listener corked with TCP_CORK (TCP_NOPUSH on BSD) marks its accepted
// clients as writers. A successful write moves a writer to written; the next
// read attempt on a written descriptor uncorks and immediately recorks it,
// pushing out any partial segment while leaving coalescing on for the
// following response.
//
//	          OnSend              OnRecv (flush)
//	Writer ───────────▶ Written ───────────────▶ Writer
//
// Acceptor and Ignore never change once probed. Entries are keyed by fd and
// carry the owning handle's identity; an entry whose identity does not match
// the caller's handle is treated as unknown.
package cork
