//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package wasmhost

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/OpenListTeam/gosock/manager/sockets"
)

const loopbackIPv4 = 0x7f000001

// fakeMemory backs the memory-carrying exports in tests. Only Read and
// Write are implemented.
type fakeMemory struct {
	api.Memory
	buf []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{buf: make([]byte, size)}
}

func (m *fakeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset:end], true
}

func (m *fakeMemory) Write(offset uint32, v []byte) bool {
	end := uint64(offset) + uint64(len(v))
	if end > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

// setupHost instantiates the host module in a fresh runtime.
func setupHost(t *testing.T, opts ...HostOption) (context.Context, *Host, api.Module) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	h := NewHost(opts...)
	t.Cleanup(h.Close)
	mod, err := h.Instantiate(ctx, r)
	require.NoError(t, err)
	return ctx, h, mod
}

func call(t *testing.T, ctx context.Context, mod api.Module, name string, params ...uint64) int64 {
	t.Helper()
	fn := mod.ExportedFunction(name)
	require.NotNil(t, fn, name)
	res, err := fn.Call(ctx, params...)
	require.NoError(t, err, name)
	require.Len(t, res, 1)
	return int64(res[0])
}

func TestHostExportsRegistered(t *testing.T) {
	_, _, mod := setupHost(t)
	assert.Equal(t, DefaultModuleName, mod.Name())
	for _, name := range []string{
		"sock_open", "sock_bind_ipv4", "sock_listen", "sock_accept", "sock_connect_ipv4",
		"sock_finish_connect", "sock_set_blocking", "sock_setopt", "sock_getopt",
		"sock_local_port", "sock_send", "sock_recv", "sock_sendto_ipv4", "sock_recvfrom", "sock_close",
	} {
		assert.NotNil(t, mod.ExportedFunction(name), name)
	}
}

func TestHostModuleName(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := NewHost(WithModuleName("net")).Instantiate(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "net", mod.Name())
}

func TestHostSocketLifecycle(t *testing.T) {
	ctx, h, mod := setupHost(t)

	fd := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeDgram), uint64(sockets.ProtoUDP))
	require.Greater(t, fd, int64(0))

	s, ok := h.socket(uint32(fd))
	require.True(t, ok)
	assert.Equal(t, sockets.VariantDatagram, s.Variant())

	assert.Zero(t, call(t, ctx, mod, "sock_bind_ipv4", uint64(fd), loopbackIPv4, 0))
	port := call(t, ctx, mod, "sock_local_port", uint64(fd))
	assert.Greater(t, port, int64(0))

	assert.Zero(t, call(t, ctx, mod, "sock_setopt", uint64(fd),
		uint64(sockets.LevelSocket), uint64(sockets.OptBroadcast), api.EncodeI32(1)))
	assert.Equal(t, int64(1), call(t, ctx, mod, "sock_getopt", uint64(fd),
		uint64(sockets.LevelSocket), uint64(sockets.OptBroadcast)))
	assert.Equal(t, ErrorCodeNotSupported.result(), call(t, ctx, mod, "sock_getopt", uint64(fd),
		uint64(sockets.LevelIP), uint64(sockets.OptBroadcast)))

	// Stream-only exports reject datagram handles.
	assert.Equal(t, ErrorCodeNotSupported.result(), call(t, ctx, mod, "sock_listen", uint64(fd), 0))

	assert.Zero(t, call(t, ctx, mod, "sock_close", uint64(fd)))
	assert.Equal(t, ErrorCodeInvalidHandle.result(), call(t, ctx, mod, "sock_close", uint64(fd)))
	assert.Equal(t, ErrorCodeInvalidHandle.result(), call(t, ctx, mod, "sock_local_port", uint64(fd)))
	assert.Equal(t, -1, s.SockFd())
}

func TestHostOpenRejectsBadArguments(t *testing.T) {
	ctx, _, mod := setupHost(t)

	assert.Equal(t, ErrorCodeInvalidArgument.result(),
		call(t, ctx, mod, "sock_open", 300, uint64(sockets.TypeStream), uint64(sockets.ProtoTCP)))
	assert.Equal(t, ErrorCodeNotSupported.result(),
		call(t, ctx, mod, "sock_open", 9, uint64(sockets.TypeStream), uint64(sockets.ProtoTCP)))
}

func TestHostBufferExportsNeedMemory(t *testing.T) {
	ctx, _, mod := setupHost(t)

	fd := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeStream), uint64(sockets.ProtoTCP))
	require.Greater(t, fd, int64(0))

	// Called from the host side, the calling module has no memory.
	assert.Equal(t, ErrorCodeInvalidArgument.result(), call(t, ctx, mod, "sock_send", uint64(fd), 0, 4))
	assert.Equal(t, ErrorCodeInvalidArgument.result(), call(t, ctx, mod, "sock_recv", uint64(fd), 0, 4))
}

func TestHostStreamExchange(t *testing.T) {
	ctx, h, mod := setupHost(t)
	mem := newFakeMemory(256)

	ln := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeStream), uint64(sockets.ProtoTCP))
	require.Greater(t, ln, int64(0))
	require.Zero(t, call(t, ctx, mod, "sock_bind_ipv4", uint64(ln), loopbackIPv4, 0))
	require.Zero(t, call(t, ctx, mod, "sock_listen", uint64(ln), 0))
	port := call(t, ctx, mod, "sock_local_port", uint64(ln))

	client := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeStream), uint64(sockets.ProtoTCP))
	require.Greater(t, client, int64(0))

	var (
		wg       sync.WaitGroup
		accepted int64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		accepted = h.accept(ctx, uint32(ln))
	}()

	require.Zero(t, call(t, ctx, mod, "sock_connect_ipv4", uint64(client), loopbackIPv4, uint64(port)))
	wg.Wait()
	require.Greater(t, accepted, int64(0))

	msg := "ping"
	copy(mem.buf[0:], msg)
	assert.Equal(t, int64(len(msg)), h.sendMem(mem, uint32(client), 0, uint32(len(msg))))

	got := int64(0)
	for got < int64(len(msg)) {
		n := h.recvMem(mem, uint32(accepted), 100+uint32(got), uint32(len(msg))-uint32(got))
		require.Greater(t, n, int64(0))
		got += n
	}
	assert.Equal(t, msg, string(mem.buf[100:104]))

	// Out-of-range guest buffers are rejected.
	assert.Equal(t, ErrorCodeInvalidArgument.result(), h.sendMem(mem, uint32(client), 250, 10))

	// Orderly close reads as 0.
	require.Zero(t, call(t, ctx, mod, "sock_close", uint64(client)))
	assert.Zero(t, h.recvMem(mem, uint32(accepted), 0, 8))
}

func TestHostDatagramExchange(t *testing.T) {
	ctx, h, mod := setupHost(t)
	mem := newFakeMemory(256)

	open := func() uint32 {
		fd := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeDgram), uint64(sockets.ProtoUDP))
		require.Greater(t, fd, int64(0))
		require.Zero(t, call(t, ctx, mod, "sock_bind_ipv4", uint64(fd), loopbackIPv4, 0))
		return uint32(fd)
	}
	a, b := open(), open()
	portA := call(t, ctx, mod, "sock_local_port", uint64(a))
	portB := call(t, ctx, mod, "sock_local_port", uint64(b))

	msg := "datagram"
	copy(mem.buf, msg)
	require.Equal(t, int64(len(msg)), h.sendToMem(mem, a, 0, uint32(len(msg)), loopbackIPv4, uint32(portB)))

	n := h.recvFromMem(mem, b, 64, 32, 200)
	require.Equal(t, int64(len(msg)), n)
	assert.Equal(t, msg, string(mem.buf[64:64+n]))

	rec := mem.buf[200 : 200+peerRecordSize]
	assert.Equal(t, byte(sockets.FamilyINET), rec[0])
	assert.Equal(t, []byte{127, 0, 0, 1}, rec[1:5])
	assert.Equal(t, uint16(portA), binary.LittleEndian.Uint16(rec[17:]))

	// Non-blocking receive with nothing queued.
	require.Zero(t, call(t, ctx, mod, "sock_set_blocking", uint64(b), 0))
	assert.Equal(t, ErrorCodeWouldBlock.result(), h.recvFromMem(mem, b, 64, 32, 200))

	// Peer record outside memory.
	assert.Equal(t, ErrorCodeInvalidArgument.result(), h.recvFromMem(mem, b, 0, 8, 250))
}

func TestHostCloseReleasesSockets(t *testing.T) {
	ctx, h, mod := setupHost(t)

	fd := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeStream), uint64(sockets.ProtoTCP))
	s, ok := h.socket(uint32(fd))
	require.True(t, ok)

	h.Close()
	assert.Equal(t, -1, s.SockFd())
	assert.Equal(t, ErrorCodeInvalidState.result(),
		call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeStream), uint64(sockets.ProtoTCP)))
}

func TestHostCloseLogsOpenSockets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx, h, mod := setupHost(t, WithLogger(zap.New(core)))

	streamFd := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeStream), uint64(sockets.ProtoTCP))
	dgramFd := call(t, ctx, mod, "sock_open", uint64(sockets.FamilyINET), uint64(sockets.TypeDgram), uint64(sockets.ProtoUDP))
	require.Positive(t, streamFd)
	require.Positive(t, dgramFd)

	h.Close()

	closing := logs.FilterMessage("closing guest socket").All()
	require.Len(t, closing, 2)
	variants := map[uint32]string{}
	for _, e := range closing {
		m := e.ContextMap()
		variants[m["handle"].(uint32)] = m["variant"].(string)
	}
	assert.Equal(t, map[uint32]string{
		uint32(streamFd): "stream",
		uint32(dgramFd):  "datagram",
	}, variants)
}
