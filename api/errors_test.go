package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

func TestErrorKindPredicates(t *testing.T) {
	for _, k := range []api.ErrorKind{api.KindInterrupted, api.KindAborted, api.KindProtocol} {
		assert.True(t, k.Transient(), k.String())
		assert.False(t, k.Exhaustion(), k.String())
	}
	for _, k := range []api.ErrorKind{api.KindNoMemory, api.KindFDTableFull, api.KindNoBuffers} {
		assert.True(t, k.Exhaustion(), k.String())
		assert.False(t, k.Transient(), k.String())
	}
	for _, k := range []api.ErrorKind{api.KindNone, api.KindWouldBlock, api.KindUnsupported, api.KindOther} {
		assert.False(t, k.Transient(), k.String())
		assert.False(t, k.Exhaustion(), k.String())
	}
	assert.Equal(t, "unknown", api.ErrorKind(99).String())
}

func TestErrorWrapping(t *testing.T) {
	err := api.NewError(api.ErrCodeSyscall, "accept", unix.EBADF).
		WithKind(api.KindOther).
		WithContext("fd", 3)

	require.ErrorIs(t, err, unix.EBADF)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "accept", apiErr.Op)
	assert.Equal(t, api.KindOther, apiErr.Kind)
	assert.Contains(t, err.Error(), "accept: ")
	assert.Contains(t, err.Error(), "context")
}

func TestResourceExhaustedMatch(t *testing.T) {
	err := api.NewError(api.ErrCodeResourceExhausted, "accept", unix.EMFILE)
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.ErrorIs(t, err, unix.EMFILE)

	other := api.NewError(api.ErrCodeSyscall, "accept", unix.EBADF)
	assert.NotErrorIs(t, other, api.ErrResourceExhausted)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "writer", api.CorkWriter.String())
	assert.Equal(t, "acceptor", api.CorkAcceptor.String())
	assert.Equal(t, "would-block", api.WouldBlock.String())
	assert.Equal(t, "nonblocking", api.NonBlocking.String())
	assert.Equal(t, "fd=7 id=2", api.Socket{FD: 7, ID: 2}.String())
}

func TestReclaimFunc(t *testing.T) {
	called := 0
	var r api.Reclaimer = api.ReclaimFunc(func() { called++ })
	r.Reclaim()
	assert.Equal(t, 1, called)
}
