//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package sockets

import (
	"errors"

	"golang.org/x/sys/unix"
)

// osError classifies a failed system call. kind is the category the calling
// operation reports under; a few errnos override it (would-block, closed).
func osError(op string, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	e := &Error{Op: op, Kind: kind, Cause: err}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return e
	}
	e.Errno = errno

	switch errno {
	case unix.EAGAIN:
		e.Kind = KindWouldBlock
	case unix.EINPROGRESS:
		e.Kind = KindWouldBlock
		e.Reason = ReasonInProgress
	case unix.EALREADY:
		e.Reason = ReasonInProgress
	case unix.EADDRINUSE:
		e.Reason = ReasonAddressInUse
	case unix.EADDRNOTAVAIL:
		e.Reason = ReasonAddressUnavailable
	case unix.EACCES, unix.EPERM:
		e.Reason = ReasonPermission
	case unix.ECONNREFUSED:
		e.Reason = ReasonRefused
	case unix.ENETUNREACH, unix.EHOSTUNREACH:
		e.Reason = ReasonUnreachable
	case unix.ETIMEDOUT:
		e.Reason = ReasonTimeout
	case unix.ECONNRESET, unix.EPIPE:
		e.Reason = ReasonReset
	case unix.ECONNABORTED:
		e.Reason = ReasonAborted
	case unix.EISCONN, unix.ENOTCONN:
		e.Reason = ReasonInvalidState
	case unix.EBADF, unix.ENOTSOCK:
		e.Kind = KindPrecondition
		e.Reason = ReasonClosed
	case unix.ENOPROTOOPT, unix.EOPNOTSUPP, unix.EAFNOSUPPORT, unix.EPROTONOSUPPORT:
		e.Reason = ReasonUnsupported
	case unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM:
		e.Reason = ReasonResourceLimit
	case unix.EMSGSIZE:
		e.Reason = ReasonTruncated
	case unix.EINVAL:
		// bind(2) reports a second bind on the same socket as EINVAL.
		if op == "bind" {
			e.Reason = ReasonAlreadyBound
		} else {
			e.Reason = ReasonInvalidArgument
		}
	}
	return e
}
