package wasmhost

import (
	"context"
	"encoding/binary"
	"errors"
	"io"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/OpenListTeam/gosock/manager/sockets"
)

// peerRecordSize is the layout sock_recvfrom writes at addrPtr: one family
// byte, 16 address bytes in network order (IPv4 uses the first 4), then the
// port as little-endian u16.
const peerRecordSize = 1 + 16 + 2

func (h *Host) open(_ context.Context, family, typ, proto uint32) int64 {
	f, ok1 := toEnum[sockets.Family](family)
	t, ok2 := toEnum[sockets.Type](typ)
	p, ok3 := toEnum[sockets.Protocol](proto)
	if !ok1 || !ok2 || !ok3 {
		return ErrorCodeInvalidArgument.result()
	}
	s, err := sockets.NewSocket(f, t, p)
	if err != nil {
		return status(err)
	}
	return h.add(s)
}

func (h *Host) bindIPv4(_ context.Context, handle, addr, port uint32) int64 {
	s, code := h.lookup(handle)
	if code != 0 {
		return code.result()
	}
	if port > 0xffff {
		return ErrorCodeInvalidArgument.result()
	}
	return status(s.Bind(sockets.NewIPv4Address(addr, uint16(port))))
}

func (h *Host) listen(_ context.Context, handle uint32, backlog int32) int64 {
	s, code := h.stream(handle)
	if code != 0 {
		return code.result()
	}
	return status(s.Listen(int(backlog)))
}

func (h *Host) accept(_ context.Context, handle uint32) int64 {
	s, code := h.stream(handle)
	if code != 0 {
		return code.result()
	}
	conn, peer, err := s.Accept()
	if err != nil {
		return status(err)
	}
	h.logger.Debug("guest accepted connection", zap.Uint32("listener", handle), zap.Stringer("peer", peer))
	return h.add(conn)
}

func (h *Host) connectIPv4(_ context.Context, handle, addr, port uint32) int64 {
	s, code := h.stream(handle)
	if code != 0 {
		return code.result()
	}
	if port > 0xffff {
		return ErrorCodeInvalidArgument.result()
	}
	return status(s.Connect(sockets.NewIPv4Address(addr, uint16(port))))
}

func (h *Host) finishConnect(_ context.Context, handle uint32) int64 {
	s, code := h.stream(handle)
	if code != 0 {
		return code.result()
	}
	return status(s.FinishConnect())
}

func (h *Host) setBlocking(_ context.Context, handle, flag uint32) int64 {
	s, code := h.lookup(handle)
	if code != 0 {
		return code.result()
	}
	return status(s.SetBlockingMode(flag != 0))
}

func (h *Host) setOpt(_ context.Context, handle, level, opt uint32, value int32) int64 {
	s, code := h.lookup(handle)
	if code != 0 {
		return code.result()
	}
	l, ok1 := toEnum[sockets.Level](level)
	o, ok2 := toEnum[sockets.OptName](opt)
	if !ok1 || !ok2 {
		return ErrorCodeInvalidArgument.result()
	}
	return status(s.SetSockOpt(l, o, int(value)))
}

func (h *Host) getOpt(_ context.Context, handle, level, opt uint32) int64 {
	s, code := h.lookup(handle)
	if code != 0 {
		return code.result()
	}
	l, ok1 := toEnum[sockets.Level](level)
	o, ok2 := toEnum[sockets.OptName](opt)
	if !ok1 || !ok2 {
		return ErrorCodeInvalidArgument.result()
	}
	v, err := s.GetSockOpt(l, o)
	if err != nil {
		return status(err)
	}
	return int64(v)
}

func (h *Host) localPort(_ context.Context, handle uint32) int64 {
	s, code := h.lookup(handle)
	if code != 0 {
		return code.result()
	}
	a, err := s.LocalAddr()
	if err != nil {
		return status(err)
	}
	return int64(a.Port())
}

func (h *Host) send(_ context.Context, m api.Module, handle, ptr, n uint32) int64 {
	return h.sendMem(m.Memory(), handle, ptr, n)
}

func (h *Host) sendMem(mem api.Memory, handle, ptr, n uint32) int64 {
	s, code := h.stream(handle)
	if code != 0 {
		return code.result()
	}
	buf, ok := readMem(mem, ptr, n)
	if !ok {
		return ErrorCodeInvalidArgument.result()
	}
	w, err := s.Send(buf)
	if err != nil {
		return status(err)
	}
	return int64(w)
}

func (h *Host) recv(_ context.Context, m api.Module, handle, ptr, n uint32) int64 {
	return h.recvMem(m.Memory(), handle, ptr, n)
}

// recvMem returns 0 once the peer has shut down its side.
func (h *Host) recvMem(mem api.Memory, handle, ptr, n uint32) int64 {
	s, code := h.stream(handle)
	if code != 0 {
		return code.result()
	}
	buf, ok := readMem(mem, ptr, n)
	if !ok {
		return ErrorCodeInvalidArgument.result()
	}
	r, err := s.Recv(buf)
	if errors.Is(err, io.EOF) {
		return 0
	}
	if err != nil {
		return status(err)
	}
	return int64(r)
}

func (h *Host) sendToIPv4(_ context.Context, m api.Module, handle, ptr, n, addr, port uint32) int64 {
	return h.sendToMem(m.Memory(), handle, ptr, n, addr, port)
}

func (h *Host) sendToMem(mem api.Memory, handle, ptr, n, addr, port uint32) int64 {
	d, code := h.datagram(handle)
	if code != 0 {
		return code.result()
	}
	if port > 0xffff {
		return ErrorCodeInvalidArgument.result()
	}
	buf, ok := readMem(mem, ptr, n)
	if !ok {
		return ErrorCodeInvalidArgument.result()
	}
	w, err := d.SendTo(buf, sockets.NewIPv4Address(addr, uint16(port)))
	if err != nil {
		return status(err)
	}
	return int64(w)
}

func (h *Host) recvFrom(_ context.Context, m api.Module, handle, ptr, n, addrPtr uint32) int64 {
	return h.recvFromMem(m.Memory(), handle, ptr, n, addrPtr)
}

// recvFromMem reports a truncated datagram as ErrorCodeDatagramTooLarge; the
// truncated payload and the peer record are still written.
func (h *Host) recvFromMem(mem api.Memory, handle, ptr, n, addrPtr uint32) int64 {
	d, code := h.datagram(handle)
	if code != 0 {
		return code.result()
	}
	buf, ok := readMem(mem, ptr, n)
	if !ok {
		return ErrorCodeInvalidArgument.result()
	}
	if _, ok := readMem(mem, addrPtr, peerRecordSize); !ok {
		return ErrorCodeInvalidArgument.result()
	}
	r, from, err := d.RecvFrom(buf)
	if from.IsValid() {
		mem.Write(addrPtr, encodePeer(from))
	}
	if err != nil {
		return status(err)
	}
	return int64(r)
}

func (h *Host) closeSocket(_ context.Context, handle uint32) int64 {
	if !h.sockets.Remove(handle) {
		return ErrorCodeInvalidHandle.result()
	}
	h.logger.Debug("guest socket closed", zap.Uint32("handle", handle))
	return 0
}

// readMem returns a view of guest memory. Writes to the view land in guest
// memory directly.
func readMem(mem api.Memory, ptr, n uint32) ([]byte, bool) {
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, n)
}

func encodePeer(a sockets.Address) []byte {
	rec := make([]byte, peerRecordSize)
	rec[0] = byte(a.Family())
	ap := a.AddrPort()
	ip := ap.Addr()
	if ip.Is4() {
		v4 := ip.As4()
		copy(rec[1:5], v4[:])
	} else {
		v6 := ip.As16()
		copy(rec[1:17], v6[:])
	}
	binary.LittleEndian.PutUint16(rec[17:], a.Port())
	return rec
}
