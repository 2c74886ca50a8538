package sockets

import (
	"io"

	"go.uber.org/zap"
)

// StreamState is the connection state of a StreamSocket.
type StreamState uint8

const (
	StreamUnbound StreamState = iota
	StreamBound
	StreamListening
	StreamConnecting
	StreamConnected
	StreamClosed
	// StreamFailed follows a non-blocking connect that completed with an error.
	// The descriptor stays open until Close.
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamUnbound:
		return "unbound"
	case StreamBound:
		return "bound"
	case StreamListening:
		return "listening"
	case StreamConnecting:
		return "connecting"
	case StreamConnected:
		return "connected"
	case StreamClosed:
		return "closed"
	case StreamFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StreamSocket is a connection-oriented socket.
//
// Server path: Bind, Listen, then Accept for each peer. Client path:
// Connect (optionally after Bind), then Send and Recv.
type StreamSocket struct {
	h     *handle
	state StreamState
}

// NewStream opens a TCP stream socket.
func NewStream(family Family, opts ...ConfigOption) (*StreamSocket, error) {
	return newStream(family, ProtoTCP, opts)
}

func newStream(family Family, proto Protocol, opts []ConfigOption) (*StreamSocket, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	h, err := openHandle(family, TypeStream, proto, cfg)
	if err != nil {
		return nil, err
	}
	return &StreamSocket{h: h, state: StreamUnbound}, nil
}

func (s *StreamSocket) Variant() Variant   { return VariantStream }
func (s *StreamSocket) Family() Family     { return s.h.family }
func (s *StreamSocket) Type() Type         { return s.h.typ }
func (s *StreamSocket) Protocol() Protocol { return s.h.proto }
func (s *StreamSocket) Blocking() bool     { return s.h.blocking }
func (s *StreamSocket) SockFd() int        { return s.h.sockFd() }
func (s *StreamSocket) State() StreamState { return s.state }

func (s *StreamSocket) SetSockOpt(level Level, opt OptName, value int) error {
	return s.h.setSockOpt(level, opt, value)
}

func (s *StreamSocket) GetSockOpt(level Level, opt OptName) (int, error) {
	return s.h.getSockOpt(level, opt)
}

func (s *StreamSocket) SetBlockingMode(blocking bool) error {
	return s.h.setBlockingMode(blocking)
}

func (s *StreamSocket) LocalAddr() (Address, error) {
	return s.h.localAddr()
}

// Bind is valid only on an unbound socket that has not started connecting.
func (s *StreamSocket) Bind(addr Address) error {
	if err := s.h.checkOpen("bind"); err != nil {
		return err
	}
	if s.state != StreamUnbound {
		return &Error{Op: "bind", Kind: KindBind, Reason: ReasonAlreadyBound, Detail: "socket is " + s.state.String()}
	}
	if err := s.h.bind(addr); err != nil {
		return err
	}
	s.state = StreamBound
	return nil
}

// Listen marks a bound socket passive. A backlog <= 0 selects DefaultBacklog.
func (s *StreamSocket) Listen(backlog int) error {
	if err := s.h.checkOpen("listen"); err != nil {
		return err
	}
	if s.state != StreamBound {
		return stateError("listen", KindListen, s.state)
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := sysListen(s.h.fd, backlog); err != nil {
		return osError("listen", KindListen, err)
	}
	s.state = StreamListening
	return nil
}

// Accept waits for a peer and returns a new, independently owned socket for
// the connection together with the peer address. The listening socket stays
// Listening. The accepted socket is blocking regardless of the listener's
// mode.
func (s *StreamSocket) Accept() (*StreamSocket, Address, error) {
	if err := s.h.checkOpen("accept"); err != nil {
		return nil, Address{}, err
	}
	if s.state != StreamListening {
		return nil, Address{}, stateError("accept", KindPrecondition, s.state)
	}
	nfd, peer, err := sysAccept(s.h.fd)
	if err != nil {
		return nil, Address{}, osError("accept", KindIO, err)
	}
	h, err := adoptHandle(nfd, s.h)
	if err != nil {
		return nil, Address{}, err
	}
	Logger().Debug("connection accepted",
		zap.Int("listener", s.h.fd),
		zap.Int("fd", nfd),
		zap.Stringer("peer", peer))
	return &StreamSocket{h: h, state: StreamConnected}, peer, nil
}

// Connect connects to peer. It is valid from Unbound or Bound only.
//
// On a non-blocking socket the connection usually cannot complete at once:
// Connect then returns an error matching ErrWouldBlock with reason
// ReasonInProgress, the socket moves to StreamConnecting, and the caller
// finishes with FinishConnect once the descriptor is writable.
func (s *StreamSocket) Connect(peer Address) error {
	if err := s.h.checkOpen("connect"); err != nil {
		return err
	}
	if s.state != StreamUnbound && s.state != StreamBound {
		return stateError("connect", KindConnect, s.state)
	}
	if err := checkAddress("connect", KindConnect, s.h.family, peer); err != nil {
		return err
	}
	if err := sysConnect(s.h.fd, peer, s.h.blocking); err != nil {
		e := osError("connect", KindConnect, err)
		if isInProgress(e) {
			s.state = StreamConnecting
		}
		return e
	}
	s.h.bound = true
	s.state = StreamConnected
	return nil
}

// FinishConnect completes a connection started by a non-blocking Connect.
// It returns an error matching ErrWouldBlock while the attempt is still
// pending. A failed attempt moves the socket to StreamFailed, where only
// Close and the descriptor-level calls remain useful.
func (s *StreamSocket) FinishConnect() error {
	if err := s.h.checkOpen("connect"); err != nil {
		return err
	}
	switch s.state {
	case StreamConnected:
		return nil
	case StreamConnecting:
	default:
		return stateError("connect", KindConnect, s.state)
	}
	if err := sysSocketError(s.h.fd); err != nil {
		s.state = StreamFailed
		return osError("connect", KindConnect, err)
	}
	if _, err := sysGetpeername(s.h.fd); err != nil {
		if isNotConnected(err) {
			return &Error{Op: "connect", Kind: KindWouldBlock, Reason: ReasonInProgress, Cause: err}
		}
		return osError("connect", KindConnect, err)
	}
	s.h.bound = true
	s.state = StreamConnected
	return nil
}

func (s *StreamSocket) checkConnected(op string) error {
	if err := s.h.checkOpen(op); err != nil {
		return err
	}
	if s.state != StreamConnected {
		return stateError(op, KindPrecondition, s.state)
	}
	return nil
}

// Send writes as much of p as the OS accepts and returns the count. A short
// count is not an error; see SendAll.
func (s *StreamSocket) Send(p []byte) (int, error) {
	if err := s.checkConnected("send"); err != nil {
		return 0, err
	}
	n, err := sysSend(s.h.fd, p)
	if err != nil {
		return 0, osError("send", KindIO, err)
	}
	return n, nil
}

// Recv reads up to len(p) bytes. It returns 0, io.EOF once the peer has
// shut down its side and no data is left.
func (s *StreamSocket) Recv(p []byte) (int, error) {
	if err := s.checkConnected("recv"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := sysRecv(s.h.fd, p)
	if err != nil {
		return 0, osError("recv", KindIO, err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Read implements io.Reader on top of Recv.
func (s *StreamSocket) Read(p []byte) (int, error) {
	return s.Recv(p)
}

// Write implements io.Writer. Unlike Send it keeps sending until all of p is
// written or an error occurs.
func (s *StreamSocket) Write(p []byte) (int, error) {
	return SendAll(s, p)
}

// Shutdown disables further sends, receives or both on a connected socket.
func (s *StreamSocket) Shutdown(how ShutdownHow) error {
	if err := s.checkConnected("shutdown"); err != nil {
		return err
	}
	nh, ok := nativeShutdown[how]
	if !ok {
		return argError("shutdown", KindIO, ReasonInvalidArgument, "unknown shutdown direction")
	}
	if err := sysShutdown(s.h.fd, nh); err != nil {
		return osError("shutdown", KindIO, err)
	}
	return nil
}

// RemoteAddr returns the address of the connected peer.
func (s *StreamSocket) RemoteAddr() (Address, error) {
	if err := s.checkConnected("getpeername"); err != nil {
		return Address{}, err
	}
	a, err := sysGetpeername(s.h.fd)
	if err != nil {
		return Address{}, osError("getpeername", KindIO, err)
	}
	return a, nil
}

// Close releases the descriptor. Calling it again is a no-op.
func (s *StreamSocket) Close() error {
	s.state = StreamClosed
	return s.h.close()
}

func isInProgress(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindWouldBlock && e.Reason == ReasonInProgress
}
