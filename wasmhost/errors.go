package wasmhost

import (
	"errors"

	"github.com/OpenListTeam/gosock/manager/sockets"
)

// ErrorCode is returned to guests, negated, from every export.
type ErrorCode int64

const (
	ErrorCodeUnknown ErrorCode = iota + 1
	ErrorCodeAccessDenied
	ErrorCodeNotSupported
	ErrorCodeInvalidArgument
	ErrorCodeOutOfMemory
	ErrorCodeTimeout
	ErrorCodeWouldBlock
	ErrorCodeInvalidState
	ErrorCodeInvalidHandle
	ErrorCodeNewSocketLimit
	ErrorCodeAddressNotBindable
	ErrorCodeAddressInUse
	ErrorCodeRemoteUnreachable
	ErrorCodeConnectionRefused
	ErrorCodeConnectionReset
	ErrorCodeConnectionAborted
	ErrorCodeDatagramTooLarge
	ErrorCodeClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeAccessDenied:
		return "access-denied"
	case ErrorCodeNotSupported:
		return "not-supported"
	case ErrorCodeInvalidArgument:
		return "invalid-argument"
	case ErrorCodeOutOfMemory:
		return "out-of-memory"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeWouldBlock:
		return "would-block"
	case ErrorCodeInvalidState:
		return "invalid-state"
	case ErrorCodeInvalidHandle:
		return "invalid-handle"
	case ErrorCodeNewSocketLimit:
		return "new-socket-limit"
	case ErrorCodeAddressNotBindable:
		return "address-not-bindable"
	case ErrorCodeAddressInUse:
		return "address-in-use"
	case ErrorCodeRemoteUnreachable:
		return "remote-unreachable"
	case ErrorCodeConnectionRefused:
		return "connection-refused"
	case ErrorCodeConnectionReset:
		return "connection-reset"
	case ErrorCodeConnectionAborted:
		return "connection-aborted"
	case ErrorCodeDatagramTooLarge:
		return "datagram-too-large"
	case ErrorCodeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (c ErrorCode) result() int64 {
	return -int64(c)
}

// mapError converts a socket error into the code a guest sees.
func mapError(err error) ErrorCode {
	var se *sockets.Error
	if !errors.As(err, &se) {
		if errors.Is(err, errors.ErrUnsupported) {
			return ErrorCodeNotSupported
		}
		return ErrorCodeUnknown
	}
	if se.Kind == sockets.KindWouldBlock {
		return ErrorCodeWouldBlock
	}

	switch se.Reason {
	case sockets.ReasonPermission:
		return ErrorCodeAccessDenied
	case sockets.ReasonUnsupported, sockets.ReasonNotImplemented:
		return ErrorCodeNotSupported
	case sockets.ReasonInvalidArgument, sockets.ReasonMalformed, sockets.ReasonFamilyMismatch:
		return ErrorCodeInvalidArgument
	case sockets.ReasonResourceLimit:
		if se.Op == "socket" || se.Op == "accept" {
			return ErrorCodeNewSocketLimit
		}
		return ErrorCodeOutOfMemory
	case sockets.ReasonTimeout:
		return ErrorCodeTimeout
	case sockets.ReasonInvalidState, sockets.ReasonAlreadyBound, sockets.ReasonInProgress:
		return ErrorCodeInvalidState
	case sockets.ReasonClosed:
		return ErrorCodeClosed
	case sockets.ReasonAddressUnavailable:
		return ErrorCodeAddressNotBindable
	case sockets.ReasonAddressInUse:
		return ErrorCodeAddressInUse
	case sockets.ReasonUnreachable:
		return ErrorCodeRemoteUnreachable
	case sockets.ReasonRefused:
		return ErrorCodeConnectionRefused
	case sockets.ReasonReset:
		return ErrorCodeConnectionReset
	case sockets.ReasonAborted:
		return ErrorCodeConnectionAborted
	case sockets.ReasonTruncated:
		return ErrorCodeDatagramTooLarge
	}

	if se.Kind == sockets.KindPrecondition {
		return ErrorCodeInvalidState
	}
	return ErrorCodeUnknown
}
