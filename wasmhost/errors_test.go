package wasmhost

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OpenListTeam/gosock/manager/sockets"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{&sockets.Error{Kind: sockets.KindWouldBlock}, ErrorCodeWouldBlock},
		{&sockets.Error{Kind: sockets.KindWouldBlock, Reason: sockets.ReasonInProgress}, ErrorCodeWouldBlock},
		{&sockets.Error{Kind: sockets.KindConnect, Reason: sockets.ReasonRefused}, ErrorCodeConnectionRefused},
		{&sockets.Error{Kind: sockets.KindConnect, Reason: sockets.ReasonInvalidState}, ErrorCodeInvalidState},
		{&sockets.Error{Kind: sockets.KindBind, Reason: sockets.ReasonAddressInUse}, ErrorCodeAddressInUse},
		{&sockets.Error{Kind: sockets.KindBind, Reason: sockets.ReasonAlreadyBound}, ErrorCodeInvalidState},
		{&sockets.Error{Kind: sockets.KindOption, Reason: sockets.ReasonUnsupported}, ErrorCodeNotSupported},
		{&sockets.Error{Kind: sockets.KindIO, Reason: sockets.ReasonTruncated}, ErrorCodeDatagramTooLarge},
		{&sockets.Error{Op: "socket", Kind: sockets.KindIO, Reason: sockets.ReasonResourceLimit}, ErrorCodeNewSocketLimit},
		{&sockets.Error{Op: "send", Kind: sockets.KindIO, Reason: sockets.ReasonResourceLimit}, ErrorCodeOutOfMemory},
		{&sockets.Error{Kind: sockets.KindPrecondition, Reason: sockets.ReasonClosed}, ErrorCodeClosed},
		{&sockets.Error{Kind: sockets.KindPrecondition}, ErrorCodeInvalidState},
		{&sockets.Error{Kind: sockets.KindIO}, ErrorCodeUnknown},
		{fmt.Errorf("wrapped: %w", &sockets.Error{Kind: sockets.KindIO, Reason: sockets.ReasonReset}), ErrorCodeConnectionReset},
		{errors.ErrUnsupported, ErrorCodeNotSupported},
		{errors.New("other"), ErrorCodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mapError(c.err), "%v", c.err)
	}
}

func TestErrorCodeResultIsNegative(t *testing.T) {
	for c := ErrorCodeUnknown; c <= ErrorCodeClosed; c++ {
		assert.Less(t, c.result(), int64(0))
		assert.NotEmpty(t, c.String())
	}
}
