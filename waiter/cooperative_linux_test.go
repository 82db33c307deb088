//go:build linux

package waiter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/waiter"
)

func TestCooperativeEpoll(t *testing.T) {
	c, err := waiter.NewCooperative(waiter.WithPollInterval(10 * time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	a, b := socketPair(t)
	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(b, []byte("x"))
	}()
	ready, err := c.WaitReadable(a, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ready)
	require.NoError(t, c.Forget(a))
}
