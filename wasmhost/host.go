// Package wasmhost exposes the socket layer to WebAssembly guests as a
// wazero host module.
//
// Guests refer to sockets by integer handles. Every export returns an int64:
// a non-negative value on success, or the negated ErrorCode on failure.
// Enumerations (family, type, protocol, level, option) use the numeric
// values of the corresponding sockets constants.
//
// A socket handle must not be used by two guest calls at the same time.
package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/OpenListTeam/gosock/common/handles"
	"github.com/OpenListTeam/gosock/manager/sockets"
)

// DefaultModuleName is the import module name guests link against.
const DefaultModuleName = "gosock"

// Host owns every socket opened by guests through one module instance.
type Host struct {
	name    string
	logger  *zap.Logger
	sockets *handles.Table[sockets.Socket]
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithModuleName overrides DefaultModuleName.
func WithModuleName(name string) HostOption {
	return func(h *Host) {
		h.name = name
	}
}

// WithLogger sets the logger used for guest socket lifecycle events.
func WithLogger(l *zap.Logger) HostOption {
	return func(h *Host) {
		h.logger = l
	}
}

// NewHost creates a Host. Nothing is registered until Instantiate.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		name:   DefaultModuleName,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.sockets = handles.New(func(s sockets.Socket) {
		if err := s.Close(); err != nil {
			h.logger.Debug("close on release failed", zap.Error(err))
		}
	})
	return h
}

// Instantiate registers the host module with r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	b := r.NewHostModuleBuilder(h.name)
	export := func(name string, fn any) {
		b.NewFunctionBuilder().WithFunc(fn).Export(name)
	}

	export("sock_open", h.open)
	export("sock_bind_ipv4", h.bindIPv4)
	export("sock_listen", h.listen)
	export("sock_accept", h.accept)
	export("sock_connect_ipv4", h.connectIPv4)
	export("sock_finish_connect", h.finishConnect)
	export("sock_set_blocking", h.setBlocking)
	export("sock_setopt", h.setOpt)
	export("sock_getopt", h.getOpt)
	export("sock_local_port", h.localPort)
	export("sock_send", h.send)
	export("sock_recv", h.recv)
	export("sock_sendto_ipv4", h.sendToIPv4)
	export("sock_recvfrom", h.recvFrom)
	export("sock_close", h.closeSocket)

	return b.Instantiate(ctx)
}

// Close closes every socket still held by guests.
func (h *Host) Close() {
	if h.logger.Core().Enabled(zap.DebugLevel) {
		h.sockets.Range(func(handle uint32, s sockets.Socket) bool {
			h.logger.Debug("closing guest socket",
				zap.Uint32("handle", handle),
				zap.Stringer("variant", s.Variant()),
				zap.Int("fd", s.SockFd()))
			return true
		})
	}
	h.sockets.Close()
}

func (h *Host) socket(handle uint32) (sockets.Socket, bool) {
	return h.sockets.Get(handle)
}

func (h *Host) lookup(handle uint32) (sockets.Socket, ErrorCode) {
	s, ok := h.sockets.Get(handle)
	if !ok {
		return nil, ErrorCodeInvalidHandle
	}
	return s, 0
}

func (h *Host) stream(handle uint32) (*sockets.StreamSocket, ErrorCode) {
	s, code := h.lookup(handle)
	if code != 0 {
		return nil, code
	}
	st, ok := s.(*sockets.StreamSocket)
	if !ok {
		return nil, ErrorCodeNotSupported
	}
	return st, 0
}

func (h *Host) datagram(handle uint32) (*sockets.DatagramSocket, ErrorCode) {
	s, code := h.lookup(handle)
	if code != 0 {
		return nil, code
	}
	d, ok := s.(*sockets.DatagramSocket)
	if !ok {
		return nil, ErrorCodeNotSupported
	}
	return d, 0
}

// add registers s and returns its handle as an export result.
func (h *Host) add(s sockets.Socket) int64 {
	handle := h.sockets.Add(s)
	if handle == 0 {
		return ErrorCodeInvalidState.result()
	}
	h.logger.Debug("guest socket registered",
		zap.Uint32("handle", handle),
		zap.Stringer("variant", s.Variant()),
		zap.Int("fd", s.SockFd()))
	return int64(handle)
}

func status(err error) int64 {
	if err != nil {
		return mapError(err).result()
	}
	return 0
}

func toEnum[E ~uint8](v uint32) (E, bool) {
	if v > 0xff {
		return 0, false
	}
	return E(v), true
}
