package sockets

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ErrorKind is the coarse category of a socket failure. Callers decide
// between retry, abort and reconfiguration from the kind alone.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindAddressParse
	KindBind
	KindListen
	KindConnect
	KindOption
	KindWouldBlock
	KindIO
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindAddressParse:
		return "address_parse"
	case KindBind:
		return "bind"
	case KindListen:
		return "listen"
	case KindConnect:
		return "connect"
	case KindOption:
		return "option"
	case KindWouldBlock:
		return "would_block"
	case KindIO:
		return "io"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Reason refines a kind, e.g. a connect failure that was refused vs timed out.
type Reason uint8

const (
	ReasonUnknown Reason = iota
	ReasonMalformed
	ReasonFamilyMismatch
	ReasonAddressInUse
	ReasonAddressUnavailable
	ReasonAlreadyBound
	ReasonPermission
	ReasonRefused
	ReasonUnreachable
	ReasonTimeout
	ReasonInProgress
	ReasonInvalidState
	ReasonClosed
	ReasonUnsupported
	ReasonInvalidArgument
	ReasonResourceLimit
	ReasonReset
	ReasonAborted
	ReasonTruncated
	ReasonNotImplemented
)

var reasonNames = [...]string{
	ReasonUnknown:            "",
	ReasonMalformed:          "malformed",
	ReasonFamilyMismatch:     "family_mismatch",
	ReasonAddressInUse:       "address_in_use",
	ReasonAddressUnavailable: "address_unavailable",
	ReasonAlreadyBound:       "already_bound",
	ReasonPermission:         "permission_denied",
	ReasonRefused:            "refused",
	ReasonUnreachable:        "unreachable",
	ReasonTimeout:            "timeout",
	ReasonInProgress:         "in_progress",
	ReasonInvalidState:       "invalid_state",
	ReasonClosed:             "closed",
	ReasonUnsupported:        "unsupported",
	ReasonInvalidArgument:    "invalid_argument",
	ReasonResourceLimit:      "resource_limit",
	ReasonReset:              "reset",
	ReasonAborted:            "aborted",
	ReasonTruncated:          "truncated",
	ReasonNotImplemented:     "not_implemented",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Error is the failure type returned by every operation in this package.
type Error struct {
	// Op is the operation that failed, e.g. "bind" or "recvfrom".
	Op     string
	Kind   ErrorKind
	Reason Reason
	// Errno is the OS error code, zero when the failure was detected before
	// reaching the OS.
	Errno  syscall.Errno
	Detail string
	Cause  error
}

// Sentinels for errors.Is. A sentinel with ReasonUnknown matches every
// reason of its kind.
var (
	ErrAddressParse = &Error{Kind: KindAddressParse}
	ErrBind         = &Error{Kind: KindBind}
	ErrListen       = &Error{Kind: KindListen}
	ErrConnect      = &Error{Kind: KindConnect}
	ErrOption       = &Error{Kind: KindOption}
	ErrWouldBlock   = &Error{Kind: KindWouldBlock}
	ErrIO           = &Error{Kind: KindIO}
	// ErrPrecondition also matches wrong-state failures reported under
	// another kind, such as connecting an already connected socket.
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrClosed       = &Error{Kind: KindPrecondition, Reason: ReasonClosed}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Reason != ReasonUnknown {
		b.WriteString(" (")
		b.WriteString(e.Reason.String())
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by kind, and by reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == KindPrecondition && t.Reason == ReasonUnknown && e.Precondition() {
		return true
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonUnknown || t.Reason == e.Reason
}

// OSReported reports whether the failure came from the OS rather than from a
// check made before the system call.
func (e *Error) OSReported() bool {
	return e.Errno != 0
}

// Precondition reports whether the operation was rejected because of the
// socket's state (closed, already bound, wrong connection state).
func (e *Error) Precondition() bool {
	if e.Kind == KindPrecondition {
		return true
	}
	switch e.Reason {
	case ReasonInvalidState, ReasonClosed, ReasonAlreadyBound:
		return true
	}
	return false
}

// Temporary reports whether retrying the same call later may succeed.
func (e *Error) Temporary() bool {
	return e.Kind == KindWouldBlock
}

// IsWouldBlock is shorthand for errors.Is(err, ErrWouldBlock).
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

func closedError(op string) *Error {
	return &Error{Op: op, Kind: KindPrecondition, Reason: ReasonClosed, Detail: "use of closed socket"}
}

func stateError(op string, kind ErrorKind, state fmt.Stringer) *Error {
	return &Error{Op: op, Kind: kind, Reason: ReasonInvalidState, Detail: "socket is " + state.String()}
}

func argError(op string, kind ErrorKind, reason Reason, detail string) *Error {
	return &Error{Op: op, Kind: kind, Reason: reason, Detail: detail}
}

// checkAddress rejects zero addresses and addresses of the wrong family
// before they reach the OS.
func checkAddress(op string, kind ErrorKind, family Family, addr Address) error {
	if !addr.IsValid() {
		return argError(op, kind, ReasonInvalidArgument, "invalid address")
	}
	if addr.family != family {
		return argError(op, kind, ReasonFamilyMismatch,
			fmt.Sprintf("%s address on %s socket", addr.family, family))
	}
	return nil
}
