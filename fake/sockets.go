// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all core interfaces.

package fake

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

// Step is one scripted outcome of an accept call: either a new descriptor
// with its peer, or an error.
type Step struct {
	FD   int
	Peer unix.Sockaddr
	Err  error
}

// Conn returns a successful step.
func Conn(fd int, peer unix.Sockaddr) Step { return Step{FD: fd, Peer: peer} }

// Fail returns a failing step.
func Fail(err error) Step { return Step{Err: err} }

// SocketOps is a scripted api.SocketOps. Accept calls consume steps in order;
// an exhausted script reports EAGAIN, like an empty listen queue.
type SocketOps struct {
	mu       sync.Mutex
	steps    []Step
	noAccept bool
	nonblock map[int]bool
	cloexec  map[int]bool
	peers    map[int]unix.Sockaddr

	accept4Calls  int
	acceptCalls   int
	nonblockSets  []NonblockSet
	flagFailure   error
	closed        []int
}

// NonblockSet records one SetNonblock call.
type NonblockSet struct {
	FD          int
	Nonblocking bool
}

var _ api.SocketOps = (*SocketOps)(nil)

// NewSocketOps creates a fake with the given script.
func NewSocketOps(steps ...Step) *SocketOps {
	return &SocketOps{
		steps:    steps,
		nonblock: make(map[int]bool),
		cloexec:  make(map[int]bool),
		peers:    make(map[int]unix.Sockaddr),
	}
}

// Script appends steps.
func (s *SocketOps) Script(steps ...Step) {
	s.mu.Lock()
	s.steps = append(s.steps, steps...)
	s.mu.Unlock()
}

// DisableAccept4 makes Accept4 report ENOSYS.
func (s *SocketOps) DisableAccept4() {
	s.mu.Lock()
	s.noAccept = true
	s.mu.Unlock()
}

// FailFlags makes every later flag call return err.
func (s *SocketOps) FailFlags(err error) {
	s.mu.Lock()
	s.flagFailure = err
	s.mu.Unlock()
}

func (s *SocketOps) next() Step {
	if len(s.steps) == 0 {
		return Step{Err: unix.EAGAIN}
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	if st.Err == nil {
		s.peers[st.FD] = st.Peer
	}
	return st
}

func (s *SocketOps) Accept4(fd int, flags api.AcceptFlags) (int, unix.Sockaddr, error) {
	s.mu.Lock()
	s.accept4Calls++
	if s.noAccept {
		s.mu.Unlock()
		return -1, nil, unix.ENOSYS
	}
	st := s.next()
	if st.Err == nil {
		s.nonblock[st.FD] = flags.NonBlock
		s.cloexec[st.FD] = flags.CloseOnExec
	}
	s.mu.Unlock()
	if st.Err != nil {
		return -1, nil, st.Err
	}
	return st.FD, st.Peer, nil
}

func (s *SocketOps) Accept(fd int) (int, unix.Sockaddr, error) {
	s.mu.Lock()
	s.acceptCalls++
	st := s.next()
	s.mu.Unlock()
	if st.Err != nil {
		return -1, nil, st.Err
	}
	return st.FD, st.Peer, nil
}

func (s *SocketOps) SetNonblock(fd int, nonblocking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flagFailure != nil {
		return s.flagFailure
	}
	s.nonblockSets = append(s.nonblockSets, NonblockSet{FD: fd, Nonblocking: nonblocking})
	s.nonblock[fd] = nonblocking
	return nil
}

func (s *SocketOps) Nonblock(fd int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flagFailure != nil {
		return false, s.flagFailure
	}
	return s.nonblock[fd], nil
}

func (s *SocketOps) CloseOnExec(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flagFailure != nil {
		return s.flagFailure
	}
	s.cloexec[fd] = true
	return nil
}

func (s *SocketOps) Getpeername(fd int) (unix.Sockaddr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sa, ok := s.peers[fd]
	if !ok {
		return nil, unix.ENOTCONN
	}
	return sa, nil
}

func (s *SocketOps) Close(fd int) error {
	s.mu.Lock()
	s.closed = append(s.closed, fd)
	delete(s.peers, fd)
	s.mu.Unlock()
	return nil
}

// Closed returns the descriptors passed to Close.
func (s *SocketOps) Closed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.closed...)
}

// SetListenerNonblock presets the O_NONBLOCK flag of fd without recording a call.
func (s *SocketOps) SetListenerNonblock(fd int, on bool) {
	s.mu.Lock()
	s.nonblock[fd] = on
	s.mu.Unlock()
}

// Flags reports the close-on-exec and non-blocking flags recorded for fd.
func (s *SocketOps) Flags(fd int) (cloexec, nonblock bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloexec[fd], s.nonblock[fd]
}

// Calls reports how many Accept4 and Accept calls were made.
func (s *SocketOps) Calls() (accept4, accept int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accept4Calls, s.acceptCalls
}

// NonblockSets returns the recorded SetNonblock calls.
func (s *SocketOps) NonblockSets() []NonblockSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NonblockSet(nil), s.nonblockSets...)
}

// Pending reports how many scripted steps remain.
func (s *SocketOps) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Reclaimer counts Reclaim calls.
type Reclaimer struct {
	mu    sync.Mutex
	count int
	hook  func()
}

// NewReclaimer creates a Reclaimer running hook (if any) on every call.
func NewReclaimer(hook func()) *Reclaimer {
	return &Reclaimer{hook: hook}
}

func (r *Reclaimer) Reclaim() {
	r.mu.Lock()
	r.count++
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Count returns the number of Reclaim calls.
func (r *Reclaimer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
