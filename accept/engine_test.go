package accept_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/accept"
	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/fake"
)

var listener = api.Socket{FD: 3, ID: 1}

func peer4(a, b, c, d byte) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: 40000, Addr: [4]byte{a, b, c, d}}
}

type harness struct {
	ops       *fake.SocketOps
	waiter    *fake.Waiter
	reclaimer *fake.Reclaimer
	engine    *accept.Engine
}

func newHarness(t *testing.T, opts ...accept.Option) *harness {
	t.Helper()
	h := &harness{
		ops:       fake.NewSocketOps(),
		waiter:    fake.NewWaiter(nil),
		reclaimer: fake.NewReclaimer(nil),
	}
	base := []accept.Option{
		accept.WithOps(h.ops),
		accept.WithWaiter(h.waiter),
		accept.WithReclaimer(h.reclaimer),
		accept.WithCloseOnExec(true),
		accept.WithNonBlock(false),
	}
	h.engine = accept.New(append(base, opts...)...)
	return h
}

func requireFailed(t *testing.T, res api.AcceptResult, err error, kind api.ErrorKind) *api.Error {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, api.Failed, res.Status)
	assert.Equal(t, kind, res.Kind)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, kind, apiErr.Kind)
	return apiErr
}

func TestAcceptConnected(t *testing.T) {
	h := newHarness(t, accept.WithNonBlock(true))
	h.ops.Script(fake.Conn(12, peer4(192, 0, 2, 7)))

	res, err := h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)
	assert.Equal(t, api.Connected, res.Status)
	assert.Equal(t, 12, res.FD)
	assert.Equal(t, peer4(192, 0, 2, 7), res.Peer)

	cloexec, nonblock := h.ops.Flags(12)
	assert.True(t, cloexec)
	assert.True(t, nonblock)
	assert.EqualValues(t, 1, h.engine.Stats().Connected)
}

func TestAcceptToggles(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.engine.CloseOnExec())
	assert.False(t, h.engine.NonBlock())

	h.engine.SetCloseOnExec(false)
	h.engine.SetNonBlock(true)
	h.ops.Script(fake.Conn(20, nil))

	_, err := h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)
	cloexec, nonblock := h.ops.Flags(20)
	assert.False(t, cloexec)
	assert.True(t, nonblock)
}

func TestAcceptNonBlockingEmpty(t *testing.T) {
	h := newHarness(t)

	res, err := h.engine.Accept(listener, api.NonBlocking)
	require.NoError(t, err)
	assert.Equal(t, api.WouldBlock, res.Status)
	assert.Empty(t, h.waiter.Calls(), "non-blocking accept must not suspend")
	assert.Equal(t, []fake.NonblockSet{{FD: listener.FD, Nonblocking: true}}, h.ops.NonblockSets())

	// Already non-blocking: no further flag writes.
	res, err = h.engine.Accept(listener, api.NonBlocking)
	require.NoError(t, err)
	assert.Equal(t, api.WouldBlock, res.Status)
	assert.Len(t, h.ops.NonblockSets(), 1)
	assert.EqualValues(t, 2, h.engine.Stats().WouldBlock)
}

func TestAcceptTransientRetried(t *testing.T) {
	for _, errno := range []unix.Errno{unix.EINTR, unix.ECONNABORTED, unix.EPROTO} {
		t.Run(errno.Error(), func(t *testing.T) {
			h := newHarness(t)
			h.ops.Script(fake.Fail(errno), fake.Fail(errno), fake.Fail(errno), fake.Conn(8, nil))

			res, err := h.engine.Accept(listener, api.NonBlocking)
			require.NoError(t, err)
			assert.Equal(t, api.Connected, res.Status)
			assert.Equal(t, 8, res.FD)
			assert.EqualValues(t, 3, h.engine.Stats().Retries)
			assert.Zero(t, h.reclaimer.Count())
		})
	}
}

func TestAcceptTransientThenFatal(t *testing.T) {
	h := newHarness(t)
	h.ops.Script(fake.Fail(unix.EINTR), fake.Fail(unix.EBADF))

	res, err := h.engine.Accept(listener, api.Blocking)
	requireFailed(t, res, err, api.KindOther)
	assert.ErrorIs(t, err, unix.EBADF)
}

func TestAcceptExhaustionReclaimOnce(t *testing.T) {
	exhaustion := []unix.Errno{unix.ENOMEM, unix.EMFILE, unix.ENFILE, unix.ENOBUFS}
	for _, first := range exhaustion {
		t.Run(first.Error()+"/recovers", func(t *testing.T) {
			h := newHarness(t)
			h.ops.Script(fake.Fail(first), fake.Conn(9, nil))

			res, err := h.engine.Accept(listener, api.Blocking)
			require.NoError(t, err)
			assert.Equal(t, api.Connected, res.Status)
			assert.Equal(t, 1, h.reclaimer.Count())
		})
		for _, second := range exhaustion {
			t.Run(first.Error()+"/"+second.Error(), func(t *testing.T) {
				h := newHarness(t)
				h.ops.Script(fake.Fail(first), fake.Fail(second), fake.Conn(9, nil))

				res, err := h.engine.Accept(listener, api.Blocking)
				apiErr := requireFailed(t, res, err, accept.Classify(second))
				assert.ErrorIs(t, err, second)
				assert.Equal(t, api.ErrCodeResourceExhausted, apiErr.Code)
				assert.ErrorIs(t, err, api.ErrResourceExhausted)
				assert.Equal(t, "accept", apiErr.Op)
				assert.Equal(t, listener.FD, apiErr.Context["listener"])
				assert.Equal(t, 1, h.reclaimer.Count())
				assert.Equal(t, 1, h.ops.Pending(), "no third attempt")
			})
		}
	}
}

func TestAcceptInterruptAfterReclaim(t *testing.T) {
	h := newHarness(t)
	h.ops.Script(
		fake.Fail(unix.ENOMEM),
		fake.Fail(unix.EINTR),
		fake.Fail(unix.EINTR),
		fake.Conn(10, nil),
	)
	res, err := h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)
	assert.Equal(t, 10, res.FD)
	assert.Equal(t, 1, h.reclaimer.Count())

	// An interrupt between two exhaustions starts a fresh reclaim budget.
	h.ops.Script(
		fake.Fail(unix.EMFILE),
		fake.Fail(unix.EINTR),
		fake.Fail(unix.EMFILE),
		fake.Conn(11, nil),
	)
	res, err = h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)
	assert.Equal(t, 11, res.FD)
	assert.Equal(t, 3, h.reclaimer.Count())
}

func TestAcceptOtherErrorNotRetried(t *testing.T) {
	h := newHarness(t)
	h.ops.Script(fake.Fail(unix.EINVAL), fake.Conn(9, nil))

	res, err := h.engine.Accept(listener, api.Blocking)
	apiErr := requireFailed(t, res, err, api.KindOther)
	assert.Equal(t, api.ErrCodeSyscall, apiErr.Code)
	assert.Contains(t, err.Error(), "accept: ")
	assert.Equal(t, 1, h.ops.Pending())
	assert.EqualValues(t, 1, h.engine.Stats().Failures)
}

func TestAcceptBlockingResetsNonblockOnce(t *testing.T) {
	h := newHarness(t)
	h.ops.SetListenerNonblock(listener.FD, true)
	h.ops.Script(fake.Fail(unix.EAGAIN), fake.Fail(unix.EAGAIN), fake.Conn(14, nil))

	res, err := h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)
	assert.Equal(t, 14, res.FD)

	assert.Equal(t, []fake.NonblockSet{{FD: listener.FD, Nonblocking: false}}, h.ops.NonblockSets())
	calls := h.waiter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fake.WaitCall{FD: listener.FD, Timeout: -1}, calls[0])

	st := h.engine.Stats()
	assert.EqualValues(t, 1, st.BlockingResets)
	assert.EqualValues(t, 1, st.Waits)
}

func TestAcceptBlockingResetAfterInterval(t *testing.T) {
	h := newHarness(t, accept.WithBlockingResetInterval(30*time.Millisecond))

	h.ops.SetListenerNonblock(listener.FD, true)
	h.ops.Script(fake.Fail(unix.EAGAIN), fake.Conn(14, nil))
	_, err := h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	h.ops.SetListenerNonblock(listener.FD, true)
	h.ops.Script(fake.Fail(unix.EAGAIN), fake.Conn(15, nil))
	_, err = h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)

	assert.Len(t, h.ops.NonblockSets(), 2)
	assert.Empty(t, h.waiter.Calls())
	assert.EqualValues(t, 2, h.engine.Stats().BlockingResets)
}

func TestAcceptBlockingSuspendsUntilConnection(t *testing.T) {
	ops := fake.NewSocketOps()
	w := fake.NewWaiter(func(c fake.WaitCall) (bool, error) {
		// The peer connects while the caller is parked.
		ops.Script(fake.Conn(30, peer4(127, 0, 0, 1)))
		return true, nil
	})
	e := accept.New(accept.WithOps(ops), accept.WithWaiter(w), accept.WithReclaimer(fake.NewReclaimer(nil)))

	ops.SetListenerNonblock(listener.FD, true)
	// The first would-block clears the flag, the second parks the caller.
	ops.Script(fake.Fail(unix.EAGAIN))

	res, err := e.Accept(listener, api.Blocking)
	require.NoError(t, err)
	assert.Equal(t, api.Connected, res.Status)
	assert.Equal(t, 30, res.FD)
	assert.Len(t, w.Calls(), 1)
}

func TestAcceptWaiterError(t *testing.T) {
	ops := fake.NewSocketOps()
	w := fake.NewWaiter(func(fake.WaitCall) (bool, error) { return false, api.ErrClosed })
	e := accept.New(accept.WithOps(ops), accept.WithWaiter(w))

	ops.Script(fake.Fail(unix.EAGAIN), fake.Fail(unix.EAGAIN))
	res, err := e.Accept(listener, api.Blocking)
	apiErr := requireFailed(t, res, err, api.KindOther)
	assert.Equal(t, "wait_readable", apiErr.Op)
	assert.ErrorIs(t, err, api.ErrClosed)
}

func TestAcceptFallbackIsSticky(t *testing.T) {
	h := newHarness(t, accept.WithNonBlock(true))
	h.ops.DisableAccept4()
	h.ops.Script(fake.Conn(21, nil), fake.Conn(22, nil))

	res, err := h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)
	assert.Equal(t, 21, res.FD)
	cloexec, nonblock := h.ops.Flags(21)
	assert.True(t, cloexec)
	assert.True(t, nonblock)

	_, err = h.engine.Accept(listener, api.Blocking)
	require.NoError(t, err)

	accept4, plain := h.ops.Calls()
	assert.Equal(t, 1, accept4)
	assert.Equal(t, 2, plain)
	assert.True(t, h.engine.Stats().Accept4Fallback)
}

func TestAcceptFallbackFlagFailureClosesDescriptor(t *testing.T) {
	h := newHarness(t)
	h.ops.DisableAccept4()
	h.ops.Script(fake.Conn(23, nil))
	h.ops.FailFlags(unix.EBADF)

	res, err := h.engine.Accept(listener, api.Blocking)
	apiErr := requireFailed(t, res, err, api.KindOther)
	assert.Equal(t, "fcntl(F_SETFD, FD_CLOEXEC)", apiErr.Op)
	assert.Equal(t, []int{23}, h.ops.Closed())
}

func TestAcceptNonBlockingFlagFailure(t *testing.T) {
	h := newHarness(t)
	h.ops.FailFlags(unix.EBADF)

	res, err := h.engine.Accept(listener, api.NonBlocking)
	apiErr := requireFailed(t, res, err, api.KindOther)
	assert.Equal(t, "fcntl(F_GETFL)", apiErr.Op)
	assert.ErrorIs(t, err, unix.EBADF)
}
