//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package sockets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoundDatagram(t *testing.T, opts ...ConfigOption) (*DatagramSocket, Address) {
	t.Helper()
	d, err := NewDatagram(FamilyINET, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	require.NoError(t, d.Bind(loopback4(t)))
	require.Equal(t, DatagramBound, d.State())
	addr, err := d.LocalAddr()
	require.NoError(t, err)
	return d, addr
}

func TestDatagramSendToRecvFrom(t *testing.T) {
	a, addrA := newBoundDatagram(t)
	b, addrB := newBoundDatagram(t)
	require.NotEqual(t, addrA.Port(), addrB.Port())

	msg := []byte("hello datagram")
	n, err := a.SendTo(msg, addrB)
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
	assert.Equal(t, DatagramActive, a.State())

	buf := make([]byte, 64)
	n, from, err := b.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf[:n])
	assert.True(t, from.Equal(addrA), "from %s, want %s", from, addrA)
	assert.Equal(t, DatagramActive, b.State())
}

func TestDatagramNonBlockingRecvFromWouldBlock(t *testing.T) {
	d, _ := newBoundDatagram(t)
	require.NoError(t, d.SetBlockingMode(false))
	assert.False(t, d.Blocking())

	start := time.Now()
	n, _, err := d.RecvFrom(make([]byte, 16))
	elapsed := time.Since(start)

	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrWouldBlock)
	assert.NotErrorIs(t, err, ErrIO)
	assert.Less(t, elapsed, 50*time.Millisecond)

	require.NoError(t, d.SetBlockingMode(true))
	assert.True(t, d.Blocking())
}

func TestDatagramTruncatedReceive(t *testing.T) {
	a, _ := newBoundDatagram(t)
	b, addrB := newBoundDatagram(t)

	_, err := a.SendTo([]byte("0123456789"), addrB)
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, from, err := b.RecvFrom(buf)
	assert.Equal(t, 4, n)
	assert.Equal(t, "0123", string(buf))
	assert.True(t, from.IsValid())
	assert.ErrorIs(t, err, &Error{Kind: KindIO, Reason: ReasonTruncated})
}

func TestDatagramUnboundSendBindsImplicitly(t *testing.T) {
	b, addrB := newBoundDatagram(t)

	a, err := NewDatagram(FamilyINET)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, DatagramUnbound, a.State())

	_, err = a.SendTo([]byte("x"), addrB)
	require.NoError(t, err)

	local, err := a.LocalAddr()
	require.NoError(t, err)
	assert.NotZero(t, local.Port())

	_, from, err := b.RecvFrom(make([]byte, 8))
	require.NoError(t, err)
	assert.Equal(t, local.Port(), from.Port())

	// Bind after use is a state error.
	err = a.Bind(loopback4(t))
	assert.ErrorIs(t, err, ErrBind)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestDatagramAddressChecks(t *testing.T) {
	d, _ := newBoundDatagram(t)

	_, err := d.SendTo([]byte("x"), Address{})
	assert.ErrorIs(t, err, ErrIO)

	v6, err := NewAddress(FamilyINET6, "::1", 9)
	require.NoError(t, err)
	_, err = d.SendTo([]byte("x"), v6)
	assert.ErrorIs(t, err, &Error{Kind: KindIO, Reason: ReasonFamilyMismatch})
}

func TestDatagramClosed(t *testing.T) {
	d, err := NewDatagram(FamilyINET)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Equal(t, DatagramClosed, d.State())

	_, _, err = d.RecvFrom(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.SendTo([]byte("x"), NewIPv4Address(0x7f000001, 9))
	assert.ErrorIs(t, err, ErrClosed)
}
