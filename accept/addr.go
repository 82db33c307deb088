// File: accept/addr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Numeric peer formatting for accepted sockets.

package accept

import (
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-accept/api"
)

// LocalAddr is reported for Unix-domain peers, which carry no host.
const LocalAddr = "127.0.0.1"

// FormatPeer renders sa as a numeric host string without service lookup.
func FormatPeer(sa unix.Sockaddr) (string, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrFrom4(a.Addr).String(), nil
	case *unix.SockaddrInet6:
		addr := netip.AddrFrom16(a.Addr)
		if a.ZoneId != 0 {
			addr = addr.WithZone(zoneName(a.ZoneId))
		}
		return addr.String(), nil
	case *unix.SockaddrUnix:
		return LocalAddr, nil
	case nil:
		return "", api.NewError(api.ErrCodeInvalidArgument, "getnameinfo", api.ErrInvalidArgument)
	default:
		return "", api.NewError(api.ErrCodeNotSupported, "getnameinfo", api.ErrUnsupportedFamily).
			WithContext("sockaddr", sa)
	}
}

func zoneName(index uint32) string {
	if ifi, err := net.InterfaceByIndex(int(index)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(index), 10)
}

// PeerAddr resolves the peer of a connected descriptor.
func (e *Engine) PeerAddr(fd int) (string, error) {
	sa, err := e.ops.Getpeername(fd)
	if err != nil {
		return "", api.NewError(api.ErrCodeSyscall, "getpeername", err).
			WithKind(Classify(err)).
			WithContext("fd", fd)
	}
	return FormatPeer(sa)
}
