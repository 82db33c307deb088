// File: server/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw listening socket for the accept engine.

package server

import (
	"net"
	"os"
	"strings"

	"github.com/valyala/tcplisten"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/internal/sysfd"
)

// Listener owns a bound, listening descriptor detached from the Go runtime
// poller. The engine accepts on it directly.
type Listener struct {
	sock    api.Socket
	file    *os.File
	network string
	addr    string
	closed  *atomic.Bool
}

type fileListener interface {
	net.Listener
	File() (*os.File, error)
}

// Listen binds cfg.Addr. TCP listeners are created with tcplisten so the
// backlog, TCP_DEFER_ACCEPT, SO_REUSEPORT and TCP_FASTOPEN settings apply.
func Listen(cfg *Config, id api.HandleID) (*Listener, error) {
	var (
		ln  net.Listener
		err error
	)
	network := cfg.Network
	switch network {
	case "tcp", "tcp4", "tcp6":
		if network == "tcp" {
			network = "tcp4"
			if strings.Count(cfg.Addr, ":") > 1 {
				network = "tcp6"
			}
		}
		tc := &tcplisten.Config{
			ReusePort:   cfg.ReusePort,
			DeferAccept: cfg.DeferAccept,
			FastOpen:    cfg.FastOpen,
			Backlog:     cfg.Backlog,
		}
		ln, err = tc.NewListener(network, cfg.Addr)
	case "unix":
		ln, err = net.Listen(network, cfg.Addr)
		if ul, ok := ln.(*net.UnixListener); ok {
			// The detached descriptor outlives ln; Close unlinks the path.
			ul.SetUnlinkOnClose(false)
		}
	default:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "listen", api.ErrInvalidArgument).
			WithContext("network", cfg.Network)
	}
	if err != nil {
		return nil, api.NewError(api.ErrCodeSyscall, "listen", err).WithContext("addr", cfg.Addr)
	}

	fl, ok := ln.(fileListener)
	if !ok {
		ln.Close()
		return nil, api.NewError(api.ErrCodeNotSupported, "listen", api.ErrNotSupported)
	}
	f, err := fl.File()
	addr := ln.Addr().String()
	if cerr := ln.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, api.NewError(api.ErrCodeSyscall, "listener file", err)
	}

	return &Listener{
		sock:    api.Socket{FD: int(f.Fd()), ID: id},
		file:    f,
		network: network,
		addr:    addr,
		closed:  atomic.NewBool(false),
	}, nil
}

// Socket returns the listening descriptor and its identity.
func (l *Listener) Socket() api.Socket { return l.sock }

// Addr returns the bound address.
func (l *Listener) Addr() string { return l.addr }

// Network returns the resolved network.
func (l *Listener) Network() string { return l.network }

// Cork sets the coalescing option on the listener so accepted sockets
// start corked.
func (l *Listener) Cork() error {
	if l.network == "unix" {
		return nil
	}
	return sysfd.SetCork(l.sock.FD, true)
}

// wake stops further accepts; threads blocked in accept(2) return EINVAL on Linux.
func (l *Listener) wake() error {
	if l.closed.Load() {
		return nil
	}
	err := unix.Shutdown(l.sock.FD, unix.SHUT_RD)
	if err == unix.ENOTCONN {
		return nil
	}
	return err
}

// Close releases the descriptor, removing the socket file for unix listeners.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.file.Close()
	if l.network == "unix" {
		if rerr := os.Remove(l.addr); rerr != nil && !os.IsNotExist(rerr) {
			err = multierr.Append(err, rerr)
		}
	}
	return err
}
