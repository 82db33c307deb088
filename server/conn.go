// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accepted connection over a raw descriptor. Reads and writes report to the
// cork tracker so corked responses are flushed when the peer is next read.

package server

import (
	"io"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/accept"
	"github.com/momentics/hioload-accept/api"
)

// Conn is one accepted connection.
type Conn struct {
	sock   api.Socket
	peer   unix.Sockaddr
	srv    *Server
	closed *atomic.Bool

	remoteOnce sync.Once
	remote     string
	remoteErr  error
}

var _ io.ReadWriteCloser = (*Conn)(nil)

// Socket returns the descriptor and its identity.
func (c *Conn) Socket() api.Socket { return c.sock }

// RemoteAddr returns the numeric peer host, resolved on first use.
// Unix-domain peers report accept.LocalAddr.
func (c *Conn) RemoteAddr() (string, error) {
	c.remoteOnce.Do(func() {
		if c.peer != nil {
			c.remote, c.remoteErr = accept.FormatPeer(c.peer)
			return
		}
		c.remote, c.remoteErr = c.srv.engine.PeerAddr(c.sock.FD)
	})
	return c.remote, c.remoteErr
}

// Read reads into p. Every attempt is reported to the tracker, whatever the
// outcome, since a read is the signal that buffered output must go out.
func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrClosed
	}
	for {
		if err := c.srv.tracker.OnRecv(c.sock); err != nil {
			return 0, err
		}
		n, err := unix.Read(c.sock.FD, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			if _, werr := c.srv.waiter.WaitReadable(c.sock.FD, -1); werr != nil {
				return 0, werr
			}
			continue
		case err != nil:
			return 0, api.NewError(api.ErrCodeSyscall, "read", err).WithContext("fd", c.sock.FD)
		case n == 0 && len(p) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes all of p.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrClosed
	}
	total := 0
	for total < len(p) {
		n, err := unix.Write(c.sock.FD, p[total:])
		if n > 0 {
			total += n
			c.srv.tracker.OnSend(c.sock)
		}
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			if _, werr := c.srv.waiter.WaitWritable(c.sock.FD, -1); werr != nil {
				return total, werr
			}
			continue
		case err != nil:
			return total, api.NewError(api.ErrCodeSyscall, "write", err).WithContext("fd", c.sock.FD)
		}
	}
	return total, nil
}

// Close forgets the descriptor in the tracker and the waiter, then closes it.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.srv.forget(c)
	if err := unix.Close(c.sock.FD); err != nil {
		return api.NewError(api.ErrCodeSyscall, "close", err).WithContext("fd", c.sock.FD)
	}
	return nil
}

// interrupt wakes a handler blocked in Read or Write without releasing the fd.
func (c *Conn) interrupt() {
	if !c.closed.Load() {
		_ = unix.Shutdown(c.sock.FD, unix.SHUT_RDWR)
	}
}
