// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/momentics/hioload-accept/accept"
	"github.com/momentics/hioload-accept/adapters"
	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/cork"
	"github.com/momentics/hioload-accept/log"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Network         string         // "tcp", "tcp4", "tcp6" or "unix"
	Addr            string         // bind address or socket path
	Loops           int            // concurrent accept loops on the listener
	Mode            api.AcceptMode // accept mode used by every loop
	Cork            bool           // cork the listener and enable the tracker
	Backlog         int            // listen backlog, 0 = system default
	DeferAccept     bool           // TCP_DEFER_ACCEPT
	ReusePort       bool           // SO_REUSEPORT
	FastOpen        bool           // TCP_FASTOPEN
	CooperativeWait bool           // park waiters on the reactor instead of poll(2)
	PinLoops        bool           // bind each accept loop to its own CPU
	MetricsInterval time.Duration  // how often counters reach the control registry
	ShutdownTimeout time.Duration  // graceful shutdown timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Network:         "tcp4",
		Addr:            ":9000",
		Loops:           runtime.GOMAXPROCS(0),
		Mode:            api.Blocking,
		Cork:            true,
		Backlog:         4096,
		MetricsInterval: time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Handler serves one accepted connection. The connection is closed when the
// handler returns.
type Handler func(*Conn)

// Server runs accept loops over one listener and hands connections to a Handler.
type Server struct {
	cfg     *Config
	logger  log.Logger
	engine  *accept.Engine
	tracker *cork.Tracker
	waiter  api.Waiter
	control *adapters.ControlAdapter

	engineOpts  []accept.Option
	trackerOpts []cork.Option

	mu       sync.Mutex
	listener *Listener
	conns    map[*Conn]struct{}

	ids      *atomic.Uint64
	running  *atomic.Bool
	stopping *atomic.Bool
	rejected *atomic.Uint64

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	loops        sync.WaitGroup
	handlers     sync.WaitGroup
}
