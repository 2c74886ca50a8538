//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package sockets

import "golang.org/x/sys/unix"

const (
	sizeofSockaddrInet4 = unix.SizeofSockaddrInet4
	sizeofSockaddrInet6 = unix.SizeofSockaddrInet6
)

func (a Address) sockaddr() unix.Sockaddr {
	switch a.family {
	case FamilyINET:
		sa := &unix.SockaddrInet4{Port: int(a.port)}
		copy(sa.Addr[:], a.ip[:4])
		return sa
	case FamilyINET6:
		return &unix.SockaddrInet6{Port: int(a.port), Addr: a.ip}
	default:
		return nil
	}
}

func addressFromSockaddr(op string, sa unix.Sockaddr) (Address, error) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		a := Address{family: FamilyINET, port: uint16(sa.Port)}
		copy(a.ip[:4], sa.Addr[:])
		return a, nil
	case *unix.SockaddrInet6:
		return Address{family: FamilyINET6, ip: sa.Addr, port: uint16(sa.Port)}, nil
	case nil:
		return Address{}, &Error{Op: op, Kind: KindIO, Reason: ReasonUnknown, Detail: "no address returned"}
	default:
		return Address{}, &Error{Op: op, Kind: KindIO, Reason: ReasonUnsupported, Detail: "non-IP socket address"}
	}
}
