//go:build unix

package waiter_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/fake"
	"github.com/momentics/hioload-accept/waiter"
)

func newCooperative(t *testing.T) (*waiter.Cooperative, *fake.Reactor) {
	t.Helper()
	r := fake.NewReactor()
	c, err := waiter.NewCooperative(waiter.WithReactor(r), waiter.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	return c, r
}

func TestCooperativeWakesOnePerEvent(t *testing.T) {
	c, r := newCooperative(t)
	defer c.Close()

	const fd = 5
	const n = 3
	woke := make(chan struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready, err := c.WaitReadable(fd, -1)
			assert.NoError(t, err)
			assert.True(t, ready)
			woke <- struct{}{}
		}()
	}
	require.Eventually(t, func() bool { return c.Parked(fd) == n }, time.Second, time.Millisecond)

	for i := 1; i <= n; i++ {
		require.Eventually(t, func() bool { return r.Armed(fd) }, time.Second, time.Millisecond)
		r.Fire(fd, api.EventRead)
		require.Eventually(t, func() bool { return len(woke) == i }, time.Second, time.Millisecond)
		// Give a second wakeup a chance to show up if the waiter were herding.
		time.Sleep(10 * time.Millisecond)
		assert.Len(t, woke, i)
		assert.Equal(t, n-i, c.Parked(fd))
	}
	wg.Wait()
	assert.False(t, r.Armed(fd))
}

func TestCooperativeDirections(t *testing.T) {
	c, r := newCooperative(t)
	defer c.Close()

	const fd = 9
	done := make(chan string, 2)
	go func() {
		c.WaitReadable(fd, -1)
		done <- "read"
	}()
	go func() {
		c.WaitWritable(fd, -1)
		done <- "write"
	}()
	require.Eventually(t, func() bool { return c.Parked(fd) == 2 }, time.Second, time.Millisecond)

	r.Fire(fd, api.EventWrite)
	assert.Equal(t, "write", <-done)

	require.Eventually(t, func() bool { return r.Armed(fd) }, time.Second, time.Millisecond)
	r.Fire(fd, api.EventRead)
	assert.Equal(t, "read", <-done)
}

func TestCooperativeTimeout(t *testing.T) {
	c, _ := newCooperative(t)
	defer c.Close()

	ready, err := c.WaitReadable(11, 15*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, 0, c.Parked(11))
}

func TestCooperativeForget(t *testing.T) {
	c, _ := newCooperative(t)
	defer c.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := c.WaitReadable(4, -1)
		errc <- err
	}()
	require.Eventually(t, func() bool { return c.Parked(4) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, c.Forget(4))
	assert.ErrorIs(t, <-errc, api.ErrClosed)
}

func TestCooperativeCloseWakesWaiters(t *testing.T) {
	c, _ := newCooperative(t)

	errc := make(chan error, 1)
	go func() {
		_, err := c.WaitReadable(6, -1)
		errc <- err
	}()
	require.Eventually(t, func() bool { return c.Parked(6) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, <-errc, api.ErrClosed)
	assert.ErrorIs(t, c.Close(), api.ErrClosed)

	_, err := c.WaitReadable(6, -1)
	assert.ErrorIs(t, err, api.ErrClosed)
}
