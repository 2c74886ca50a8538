package sockets

import "errors"

// ReliableDatagramSocket reserves the reliable-datagram variant so code that
// switches over Variant stays exhaustive. It cannot be constructed: every
// path returns an error wrapping errors.ErrUnsupported.
type ReliableDatagramSocket struct {
	family Family
}

func notImplemented(op string) error {
	return &Error{Op: op, Kind: KindIO, Reason: ReasonNotImplemented,
		Detail: "reliable datagram sockets", Cause: errors.ErrUnsupported}
}

// NewReliableDatagram always fails.
func NewReliableDatagram(family Family, opts ...ConfigOption) (*ReliableDatagramSocket, error) {
	return nil, notImplemented("socket")
}

func (r *ReliableDatagramSocket) Variant() Variant   { return VariantReliableDatagram }
func (r *ReliableDatagramSocket) Family() Family     { return r.family }
func (r *ReliableDatagramSocket) Type() Type         { return TypeDgram }
func (r *ReliableDatagramSocket) Protocol() Protocol { return ProtoIP }
func (r *ReliableDatagramSocket) Blocking() bool     { return true }
func (r *ReliableDatagramSocket) SockFd() int        { return -1 }

func (r *ReliableDatagramSocket) Bind(Address) error {
	return notImplemented("bind")
}

func (r *ReliableDatagramSocket) SetSockOpt(Level, OptName, int) error {
	return notImplemented("setsockopt")
}

func (r *ReliableDatagramSocket) GetSockOpt(Level, OptName) (int, error) {
	return 0, notImplemented("getsockopt")
}

func (r *ReliableDatagramSocket) SetBlockingMode(bool) error {
	return notImplemented("setblocking")
}

func (r *ReliableDatagramSocket) LocalAddr() (Address, error) {
	return Address{}, notImplemented("getsockname")
}

func (r *ReliableDatagramSocket) Close() error {
	return nil
}
