//go:build linux

package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/reactor"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestReactorOneshot(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	a, b := socketPair(t)
	fired := make(chan api.FDEventType, 4)
	require.NoError(t, r.Register(uintptr(a), api.EventRead, func(fd uintptr, ev api.FDEventType) {
		assert.Equal(t, uintptr(a), fd)
		fired <- ev
	}))

	_, err = unix.Write(b, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, r.Poll(1000))
	select {
	case ev := <-fired:
		assert.NotZero(t, ev&api.EventRead)
	default:
		t.Fatal("no readiness event")
	}

	// Data is still pending but the registration is disarmed.
	require.NoError(t, r.Poll(20))
	assert.Len(t, fired, 0)

	require.NoError(t, r.Rearm(uintptr(a), api.EventRead))
	require.NoError(t, r.Poll(1000))
	assert.Len(t, fired, 1)

	require.NoError(t, r.Unregister(uintptr(a)))
}

func TestReactorPollTimeout(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	start := time.Now()
	require.NoError(t, r.Poll(30))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReactorCloseTwice(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), api.ErrClosed)
}
