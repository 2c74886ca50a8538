//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package sockets

import (
	"errors"
)

func osError(op string, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	e := &Error{Op: op, Kind: kind, Cause: err}
	if errors.Is(err, errors.ErrUnsupported) {
		e.Reason = ReasonUnsupported
	}
	return e
}
