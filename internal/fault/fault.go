package fault

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies a client failure.
type Kind int

const (
	KindUsage Kind = iota + 1
	KindConfig
	KindConnection
	KindTransport
)

// UsageExitCode is returned when the command verb is missing.
const UsageExitCode = 127

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConfig:
		return "config"
	case KindConnection:
		return "connection"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Usage reports a command-line usage error.
func Usage(message string) *Error {
	return &Error{Kind: KindUsage, Message: message}
}

// Config reports an identity, endpoint, or configuration failure.
func Config(message string, err error) *Error {
	return &Error{Kind: KindConfig, Message: message, Err: err}
}

// Connection reports that the daemon endpoint could not be reached.
func Connection(message string, err error) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: err}
}

// Transport reports a send or receive failure on an established session.
func Transport(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Errno extracts the raw system error from err's chain.
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return errno, true
	}
	return 0, false
}

// ExitCode maps err onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if Is(err, KindUsage) {
		return UsageExitCode
	}
	if errno, ok := Errno(err); ok {
		return int(errno)
	}
	return 1
}

// Diagnostic renders the single stderr line printed before exiting.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindUsage {
		return fe.Message
	}
	if errno, ok := Errno(err); ok {
		message := err.Error()
		if fe != nil {
			message = fe.Message
		}
		return fmt.Sprintf("fatal: %s (%s: 0x%x)", message, errno.Error(), int(errno))
	}
	return fmt.Sprintf("fatal: %s (0x%x)", err.Error(), ExitCode(err))
}
