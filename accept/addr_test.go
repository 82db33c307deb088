package accept_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/accept"
	"github.com/momentics/hioload-accept/api"
	"github.com/momentics/hioload-accept/fake"
)

func TestFormatPeer(t *testing.T) {
	s, err := accept.FormatPeer(peer4(10, 0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", s)

	s, err = accept.FormatPeer(&unix.SockaddrInet6{Addr: [16]byte{15: 1}})
	require.NoError(t, err)
	assert.Equal(t, "::1", s)

	mapped := &unix.SockaddrInet6{Addr: [16]byte{10: 0xff, 11: 0xff, 12: 192, 13: 0, 14: 2, 15: 1}}
	s, err = accept.FormatPeer(mapped)
	require.NoError(t, err)
	assert.Equal(t, "::ffff:192.0.2.1", s)

	s, err = accept.FormatPeer(&unix.SockaddrUnix{Name: "/tmp/x.sock"})
	require.NoError(t, err)
	assert.Equal(t, accept.LocalAddr, s)

	_, err = accept.FormatPeer(nil)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestPeerAddr(t *testing.T) {
	ops := fake.NewSocketOps(fake.Conn(12, peer4(192, 0, 2, 7)))
	e := accept.New(accept.WithOps(ops))

	res, err := e.Accept(listener, api.Blocking)
	require.NoError(t, err)

	host, err := e.PeerAddr(res.FD)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", host)

	_, err = e.PeerAddr(99)
	assert.ErrorIs(t, err, unix.ENOTCONN)
}
