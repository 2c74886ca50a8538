// Package sockets is a thin, typed layer over IPv4/IPv6 stream and datagram
// sockets.
//
// Every socket owns exactly one OS descriptor. Operations are synchronous and
// map one-to-one onto the underlying system calls; failures come back as
// *Error values classified by kind (see ErrBind, ErrConnect, ErrWouldBlock,
// ...). In non-blocking mode, calls that would suspend fail with
// ErrWouldBlock instead and the caller decides when to retry, typically by
// handing SockFd to an external poller.
//
// A socket is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access themselves. Closing a socket from another
// goroutine while a blocking call is pending on it is unsafe unless the two
// goroutines coordinate: the descriptor number may be reused by the OS
// before the pending call observes the close.
package sockets

import "fmt"

// Family is the address family of a socket or address.
type Family uint8

const (
	FamilyINET Family = iota + 1
	FamilyINET6
)

func (f Family) String() string {
	switch f {
	case FamilyINET:
		return "inet"
	case FamilyINET6:
		return "inet6"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// Level is the protocol level an option lives at.
type Level uint8

const (
	LevelSocket Level = iota + 1
	LevelIP
)

func (l Level) String() string {
	switch l {
	case LevelSocket:
		return "socket"
	case LevelIP:
		return "ip"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// OptName names a socket option.
type OptName uint8

const (
	OptReuseAddr OptName = iota + 1
	OptReusePort
	OptBroadcast
	OptRcvBuf
	OptSndBuf
)

func (o OptName) String() string {
	switch o {
	case OptReuseAddr:
		return "reuseaddr"
	case OptReusePort:
		return "reuseport"
	case OptBroadcast:
		return "broadcast"
	case OptRcvBuf:
		return "rcvbuf"
	case OptSndBuf:
		return "sndbuf"
	default:
		return fmt.Sprintf("option(%d)", uint8(o))
	}
}

// Type is the transport type of a socket.
type Type uint8

const (
	TypeStream Type = iota + 1
	TypeDgram
	TypeRaw
)

func (t Type) String() string {
	switch t {
	case TypeStream:
		return "stream"
	case TypeDgram:
		return "dgram"
	case TypeRaw:
		return "raw"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Protocol is the protocol number passed at socket creation.
type Protocol uint8

const (
	ProtoIP Protocol = iota + 1
	ProtoTCP
	ProtoUDP
	ProtoRaw
)

func (p Protocol) String() string {
	switch p {
	case ProtoIP:
		return "ip"
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	case ProtoRaw:
		return "raw"
	default:
		return fmt.Sprintf("protocol(%d)", uint8(p))
	}
}

// Variant identifies which behavior a Socket implements. The set is closed.
type Variant uint8

const (
	VariantStream Variant = iota + 1
	VariantDatagram
	// VariantReliableDatagram is reserved; no implementation exists yet.
	VariantReliableDatagram
)

func (v Variant) String() string {
	switch v {
	case VariantStream:
		return "stream"
	case VariantDatagram:
		return "datagram"
	case VariantReliableDatagram:
		return "reliable-datagram"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// ShutdownHow selects which direction of a connection to shut down.
type ShutdownHow uint8

const (
	ShutdownRead ShutdownHow = iota + 1
	ShutdownWrite
	ShutdownBoth
)

// DefaultBacklog is used by Listen when the caller passes a backlog <= 0.
const DefaultBacklog = 10

// Socket is the operation set shared by every socket variant.
type Socket interface {
	Variant() Variant
	Family() Family
	Type() Type
	Protocol() Protocol

	// Bind associates the socket with a local address.
	Bind(addr Address) error
	// SetSockOpt passes value through to the OS unexamined.
	SetSockOpt(level Level, opt OptName, value int) error
	GetSockOpt(level Level, opt OptName) (int, error)
	// SetBlockingMode toggles blocking behavior of the descriptor. In
	// non-blocking mode, calls that would block fail with ErrWouldBlock.
	SetBlockingMode(blocking bool) error
	Blocking() bool
	// SockFd exposes the raw descriptor. Ownership is not transferred; it
	// returns -1 once the socket is closed.
	SockFd() int
	LocalAddr() (Address, error)
	// Close releases the descriptor. It is idempotent.
	Close() error
}

var (
	_ Socket = (*StreamSocket)(nil)
	_ Socket = (*DatagramSocket)(nil)
	_ Socket = (*ReliableDatagramSocket)(nil)
)

type sockOptSetting struct {
	level Level
	opt   OptName
	value int
}

type config struct {
	blocking  bool
	v6Only    bool
	v6OnlySet bool
	sockOpts  []sockOptSetting
}

func defaultConfig() *config {
	return &config{
		blocking: true,
		v6Only:   true,
	}
}

// ConfigOption configures a socket at construction time.
type ConfigOption func(*config)

// WithBlocking sets the initial blocking mode. Sockets are blocking by default.
func WithBlocking(blocking bool) ConfigOption {
	return func(c *config) {
		c.blocking = blocking
	}
}

// WithV6Only controls IPV6_V6ONLY on INET6 sockets. It defaults to true.
// When set explicitly, a platform that refuses the setting fails socket
// creation with ErrOption; the default is applied best effort.
func WithV6Only(v6Only bool) ConfigOption {
	return func(c *config) {
		c.v6Only = v6Only
		c.v6OnlySet = true
	}
}

// WithSockOpt applies an option right after the descriptor is created, before
// any bind. Options are applied in the order given.
func WithSockOpt(level Level, opt OptName, value int) ConfigOption {
	return func(c *config) {
		c.sockOpts = append(c.sockOpts, sockOptSetting{level: level, opt: opt, value: value})
	}
}

// NewSocket opens a socket whose variant follows typ: TypeStream yields a
// *StreamSocket, TypeDgram and TypeRaw yield a *DatagramSocket.
func NewSocket(family Family, typ Type, proto Protocol, opts ...ConfigOption) (Socket, error) {
	switch typ {
	case TypeStream:
		s, err := newStream(family, proto, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeDgram, TypeRaw:
		d, err := newDatagram(family, typ, proto, opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, &Error{Op: "socket", Kind: KindIO, Reason: ReasonUnsupported, Detail: typ.String()}
	}
}
