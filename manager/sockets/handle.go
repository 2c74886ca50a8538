package sockets

import (
	"sync"

	"go.uber.org/zap"
)

var setV6Only = sysSetV6Only

// handle owns one OS descriptor and carries the behavior every variant
// shares: bind, options, blocking mode and close.
type handle struct {
	fd       int
	family   Family
	typ      Type
	proto    Protocol
	blocking bool
	bound    bool
	closed   bool

	closeOnce sync.Once
	closeErr  error
}

func openHandle(family Family, typ Type, proto Protocol, cfg *config) (*handle, error) {
	nf, ok := nativeFamily[family]
	if !ok {
		return nil, argError("socket", KindIO, ReasonUnsupported, family.String())
	}
	nt, ok := nativeType[typ]
	if !ok {
		return nil, argError("socket", KindIO, ReasonUnsupported, typ.String())
	}
	np, ok := nativeProtocol[proto]
	if !ok {
		return nil, argError("socket", KindIO, ReasonUnsupported, proto.String())
	}

	fd, err := sysSocket(nf, nt, np)
	if err != nil {
		return nil, osError("socket", KindIO, err)
	}
	h := &handle{fd: fd, family: family, typ: typ, proto: proto, blocking: true}

	if family == FamilyINET6 {
		// Not every platform lets V6ONLY be changed; unless the caller asked
		// for a value, the OS default stands then.
		if err := setV6Only(fd, cfg.v6Only); err != nil && cfg.v6OnlySet {
			sysClose(fd)
			return nil, osError("setsockopt", KindOption, err)
		}
	}
	if !cfg.blocking {
		if err := h.setBlockingMode(false); err != nil {
			sysClose(fd)
			return nil, err
		}
	}
	for _, o := range cfg.sockOpts {
		if err := h.setSockOpt(o.level, o.opt, o.value); err != nil {
			sysClose(fd)
			return nil, err
		}
	}

	Logger().Debug("socket opened",
		zap.Int("fd", fd),
		zap.Stringer("family", family),
		zap.Stringer("type", typ),
		zap.Stringer("protocol", proto))
	return h, nil
}

// adoptHandle wraps a descriptor handed out by accept. The new handle is
// always blocking: BSD-derived systems let accepted sockets inherit
// O_NONBLOCK from the listener, Linux does not.
func adoptHandle(fd int, parent *handle) (*handle, error) {
	if err := sysSetNonblock(fd, false); err != nil {
		sysClose(fd)
		return nil, osError("accept", KindIO, err)
	}
	return &handle{
		fd:       fd,
		family:   parent.family,
		typ:      parent.typ,
		proto:    parent.proto,
		blocking: true,
		bound:    true,
	}, nil
}

func (h *handle) checkOpen(op string) error {
	if h.closed {
		return closedError(op)
	}
	return nil
}

func (h *handle) bind(addr Address) error {
	if err := h.checkOpen("bind"); err != nil {
		return err
	}
	if err := checkAddress("bind", KindBind, h.family, addr); err != nil {
		return err
	}
	if h.bound {
		return argError("bind", KindBind, ReasonAlreadyBound, "socket is already bound")
	}
	if err := sysBind(h.fd, addr); err != nil {
		return osError("bind", KindBind, err)
	}
	h.bound = true
	return nil
}

func (h *handle) setSockOpt(level Level, opt OptName, value int) error {
	if err := h.checkOpen("setsockopt"); err != nil {
		return err
	}
	n, err := lookupOption("setsockopt", level, opt)
	if err != nil {
		return err
	}
	if err := sysSetsockoptInt(h.fd, n.level, n.name, value); err != nil {
		return osError("setsockopt", KindOption, err)
	}
	return nil
}

func (h *handle) getSockOpt(level Level, opt OptName) (int, error) {
	if err := h.checkOpen("getsockopt"); err != nil {
		return 0, err
	}
	n, err := lookupOption("getsockopt", level, opt)
	if err != nil {
		return 0, err
	}
	v, err := sysGetsockoptInt(h.fd, n.level, n.name)
	if err != nil {
		return 0, osError("getsockopt", KindOption, err)
	}
	if n.boolean && v != 0 {
		v = 1
	}
	return v, nil
}

func (h *handle) setBlockingMode(blocking bool) error {
	if err := h.checkOpen("setblocking"); err != nil {
		return err
	}
	if err := sysSetNonblock(h.fd, !blocking); err != nil {
		return osError("setblocking", KindOption, err)
	}
	h.blocking = blocking
	return nil
}

func (h *handle) sockFd() int {
	if h.closed {
		return -1
	}
	return h.fd
}

func (h *handle) localAddr() (Address, error) {
	if err := h.checkOpen("getsockname"); err != nil {
		return Address{}, err
	}
	a, err := sysGetsockname(h.fd)
	if err != nil {
		return Address{}, osError("getsockname", KindIO, err)
	}
	return a, nil
}

// close releases the descriptor once. Later calls return the first result.
func (h *handle) close() error {
	h.closeOnce.Do(func() {
		h.closed = true
		if err := sysClose(h.fd); err != nil {
			h.closeErr = osError("close", KindIO, err)
		}
		Logger().Debug("socket closed", zap.Int("fd", h.fd))
	})
	return h.closeErr
}
