package sockets

import (
	"encoding/binary"
	"net"
	"net/netip"
	"strconv"
)

// Address is an immutable IP endpoint. The zero value is invalid.
//
// The host bytes are kept in network order, exactly as the OS endpoint
// structures hold them; the port is always host order.
type Address struct {
	family Family
	ip     [16]byte
	port   uint16
}

// NewAddress parses host as textual IPv4 (dotted quad) or IPv6 (colon hex)
// notation. The notation must agree with family: "::ffff:1.2.3.4" is a valid
// INET6 host, "1.2.3.4" is not. Zoned IPv6 hosts are rejected.
func NewAddress(family Family, host string, port uint16) (Address, error) {
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Address{}, &Error{Op: "address", Kind: KindAddressParse, Reason: ReasonMalformed, Detail: strconv.Quote(host), Cause: err}
	}
	switch family {
	case FamilyINET:
		if !ip.Is4() {
			return Address{}, argError("address", KindAddressParse, ReasonFamilyMismatch, strconv.Quote(host)+" is not an IPv4 address")
		}
		a := Address{family: FamilyINET, port: port}
		v4 := ip.As4()
		copy(a.ip[:4], v4[:])
		return a, nil
	case FamilyINET6:
		if !ip.Is6() || ip.Zone() != "" {
			return Address{}, argError("address", KindAddressParse, ReasonFamilyMismatch, strconv.Quote(host)+" is not an unzoned IPv6 address")
		}
		return Address{family: FamilyINET6, ip: ip.As16(), port: port}, nil
	default:
		return Address{}, argError("address", KindAddressParse, ReasonUnsupported, family.String())
	}
}

// NewIPv4Address builds an INET address from a host-order 32-bit value, so
// 0x7f000001 is 127.0.0.1.
func NewIPv4Address(host uint32, port uint16) Address {
	a := Address{family: FamilyINET, port: port}
	binary.BigEndian.PutUint32(a.ip[:4], host)
	return a
}

// NewIPv6Address builds an INET6 address from its 128-bit network-order value.
func NewIPv6Address(host [16]byte, port uint16) Address {
	return Address{family: FamilyINET6, ip: host, port: port}
}

// ParseAddress parses "host:port" ("[host]:port" for IPv6) and picks the
// family from the host notation.
func ParseAddress(s string) (Address, error) {
	host, portText, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, &Error{Op: "address", Kind: KindAddressParse, Reason: ReasonMalformed, Detail: strconv.Quote(s), Cause: err}
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return Address{}, &Error{Op: "address", Kind: KindAddressParse, Reason: ReasonMalformed, Detail: "port " + strconv.Quote(portText), Cause: err}
	}
	family := FamilyINET6
	if ip, err := netip.ParseAddr(host); err == nil && ip.Is4() {
		family = FamilyINET
	}
	return NewAddress(family, host, uint16(port))
}

// AddressFromAddrPort converts a netip.AddrPort. IPv4 hosts become INET
// addresses, everything else INET6.
func AddressFromAddrPort(ap netip.AddrPort) (Address, error) {
	ip := ap.Addr()
	switch {
	case !ip.IsValid():
		return Address{}, argError("address", KindAddressParse, ReasonInvalidArgument, "invalid netip.AddrPort")
	case ip.Is4():
		a := Address{family: FamilyINET, port: ap.Port()}
		v4 := ip.As4()
		copy(a.ip[:4], v4[:])
		return a, nil
	case ip.Zone() != "":
		return Address{}, argError("address", KindAddressParse, ReasonUnsupported, "zoned IPv6 address")
	default:
		return Address{family: FamilyINET6, ip: ip.As16(), port: ap.Port()}, nil
	}
}

func (a Address) IsValid() bool {
	return a.family == FamilyINET || a.family == FamilyINET6
}

func (a Address) Family() Family {
	return a.family
}

// Port returns the port in host byte order.
func (a Address) Port() uint16 {
	return a.port
}

// HostAddr renders the host part as text. Results are served from a shared
// bounded cache, so repeated calls on hot paths do not allocate.
func (a Address) HostAddr() string {
	if !a.IsValid() {
		return ""
	}
	return renderHost(a.family, a.ip)
}

// SockSize is the byte size of the native endpoint structure for the
// address family, 0 for an invalid address.
func (a Address) SockSize() int {
	switch a.family {
	case FamilyINET:
		return sizeofSockaddrInet4
	case FamilyINET6:
		return sizeofSockaddrInet6
	default:
		return 0
	}
}

// Equal reports whether family, host bytes and port all match.
func (a Address) Equal(b Address) bool {
	return a == b
}

func (a Address) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(a.netipAddr(), a.port)
}

func (a Address) String() string {
	if !a.IsValid() {
		return "<invalid>"
	}
	return net.JoinHostPort(a.HostAddr(), strconv.Itoa(int(a.port)))
}

func (a Address) netipAddr() netip.Addr {
	switch a.family {
	case FamilyINET:
		return netip.AddrFrom4([4]byte(a.ip[:4]))
	case FamilyINET6:
		return netip.AddrFrom16(a.ip)
	default:
		return netip.Addr{}
	}
}
