package sockets

import "fmt"

// DatagramState tracks a DatagramSocket. There is no connection state:
// Active only records that traffic has been sent or received.
type DatagramState uint8

const (
	DatagramUnbound DatagramState = iota
	DatagramBound
	DatagramActive
	DatagramClosed
)

func (s DatagramState) String() string {
	switch s {
	case DatagramUnbound:
		return "unbound"
	case DatagramBound:
		return "bound"
	case DatagramActive:
		return "active"
	case DatagramClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DatagramSocket is a connectionless socket. Every send and receive carries
// an explicit peer address. It also serves TypeRaw sockets.
type DatagramSocket struct {
	h     *handle
	state DatagramState
}

// NewDatagram opens a UDP socket.
func NewDatagram(family Family, opts ...ConfigOption) (*DatagramSocket, error) {
	return newDatagram(family, TypeDgram, ProtoUDP, opts)
}

func newDatagram(family Family, typ Type, proto Protocol, opts []ConfigOption) (*DatagramSocket, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	h, err := openHandle(family, typ, proto, cfg)
	if err != nil {
		return nil, err
	}
	return &DatagramSocket{h: h, state: DatagramUnbound}, nil
}

func (d *DatagramSocket) Variant() Variant     { return VariantDatagram }
func (d *DatagramSocket) Family() Family       { return d.h.family }
func (d *DatagramSocket) Type() Type           { return d.h.typ }
func (d *DatagramSocket) Protocol() Protocol   { return d.h.proto }
func (d *DatagramSocket) Blocking() bool       { return d.h.blocking }
func (d *DatagramSocket) SockFd() int          { return d.h.sockFd() }
func (d *DatagramSocket) State() DatagramState { return d.state }

func (d *DatagramSocket) SetSockOpt(level Level, opt OptName, value int) error {
	return d.h.setSockOpt(level, opt, value)
}

func (d *DatagramSocket) GetSockOpt(level Level, opt OptName) (int, error) {
	return d.h.getSockOpt(level, opt)
}

func (d *DatagramSocket) SetBlockingMode(blocking bool) error {
	return d.h.setBlockingMode(blocking)
}

func (d *DatagramSocket) LocalAddr() (Address, error) {
	return d.h.localAddr()
}

// Bind is valid only before the socket has been bound or used. Sending on
// an unbound socket binds it implicitly to an ephemeral port.
func (d *DatagramSocket) Bind(addr Address) error {
	if err := d.h.checkOpen("bind"); err != nil {
		return err
	}
	if d.state != DatagramUnbound {
		return &Error{Op: "bind", Kind: KindBind, Reason: ReasonAlreadyBound, Detail: "socket is " + d.state.String()}
	}
	if err := d.h.bind(addr); err != nil {
		return err
	}
	d.state = DatagramBound
	return nil
}

// SendTo transmits p as one datagram to dst. If the OS accepts fewer than
// len(p) bytes the datagram was cut short; SendTo returns the count together
// with an error of kind KindIO and reason ReasonTruncated.
func (d *DatagramSocket) SendTo(p []byte, dst Address) (int, error) {
	if err := d.h.checkOpen("sendto"); err != nil {
		return 0, err
	}
	if err := checkAddress("sendto", KindIO, d.h.family, dst); err != nil {
		return 0, err
	}
	n, err := sysSendTo(d.h.fd, p, dst)
	if err != nil {
		return 0, osError("sendto", KindIO, err)
	}
	d.h.bound = true
	d.state = DatagramActive
	if n < len(p) {
		return n, &Error{Op: "sendto", Kind: KindIO, Reason: ReasonTruncated,
			Detail: fmt.Sprintf("sent %d of %d bytes", n, len(p))}
	}
	return n, nil
}

// RecvFrom receives one datagram into p and returns its length and sender.
// A datagram longer than p is cut to len(p); the rest is discarded by the OS
// and RecvFrom reports it with an error of reason ReasonTruncated alongside
// the valid n and sender.
func (d *DatagramSocket) RecvFrom(p []byte) (int, Address, error) {
	if err := d.h.checkOpen("recvfrom"); err != nil {
		return 0, Address{}, err
	}
	n, from, truncated, err := sysRecvFrom(d.h.fd, p)
	if err != nil {
		return 0, Address{}, osError("recvfrom", KindIO, err)
	}
	d.state = DatagramActive
	if truncated {
		return n, from, &Error{Op: "recvfrom", Kind: KindIO, Reason: ReasonTruncated,
			Detail: fmt.Sprintf("datagram larger than %d byte buffer", len(p))}
	}
	return n, from, nil
}

// Close releases the descriptor. Calling it again is a no-op.
func (d *DatagramSocket) Close() error {
	d.state = DatagramClosed
	return d.h.close()
}
