// Package errs provides the structured error type shared by the sync engine.
// Every failure that crosses a component boundary carries a Kind so callers
// can branch on what happened without string matching.
package errs

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the engine.
type Kind uint8

const (
	// Unknown is for unclassified errors
	Unknown Kind = iota

	// NetworkUnavailable covers offline short-circuits, transport failures,
	// timeouts and cancellations
	NetworkUnavailable

	// ServerError is a non-2xx response or an undecodable body
	ServerError

	// Validation is a rejected draft, raised before any engine or network call
	Validation

	// StaleResponseDiscarded marks work dropped because a newer request won
	StaleResponseDiscarded

	// Persistence is a key-value store failure
	Persistence
)

func (k Kind) String() string {
	switch k {
	case NetworkUnavailable:
		return "network_unavailable"
	case ServerError:
		return "server_error"
	case Validation:
		return "validation"
	case StaleResponseDiscarded:
		return "stale_response_discarded"
	case Persistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is the structured error type.
// msg is developer facing; kind is machine facing; status is the HTTP status
// for ServerError; field names the offending input for Validation.
type Error struct {
	orig   error
	msg    string
	kind   Kind
	status int
	field  string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Kind returns the error kind
func (e *Error) Kind() Kind { return e.kind }

// Status returns the HTTP status for server errors, 0 otherwise
func (e *Error) Status() int { return e.status }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf extracts a Kind from any error, defaulting to Unknown
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.kind
	}
	return Unknown
}

// Is reports whether err has the given kind
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// StatusOf returns the HTTP status attached to err, or 0
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.status
	}
	return 0
}

// New returns a new *Error with the given kind and message
func New(kind Kind, msg string) error { return &Error{kind: kind, msg: msg} }

// Newf returns a new *Error with kind and formatted message
func Newf(kind Kind, format string, a ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with kind and message
func Wrap(orig error, kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with kind and formatted message
func Wrapf(orig error, kind Kind, format string, a ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, a...), orig: orig}
}

// Sugar

// Unavailable wraps a transport failure
func Unavailable(orig error, msg string) error { return Wrap(orig, NetworkUnavailable, msg) }

// Offline is returned when a request is short-circuited by the connectivity monitor
func Offline() error { return New(NetworkUnavailable, "offline") }

// Server returns a server error carrying the response status
func Server(status int, msg string) error {
	return &Error{kind: ServerError, status: status, msg: msg}
}

// WrapServer wraps a failure to read a response that carried status
func WrapServer(orig error, status int, msg string) error {
	return &Error{kind: ServerError, status: status, msg: msg, orig: orig}
}

// Invalid returns a validation error for field
func Invalid(field, msg string) error {
	return &Error{kind: Validation, field: field, msg: msg}
}

// Stale returns a stale response error
func Stale(msg string) error { return New(StaleResponseDiscarded, msg) }

// Persist wraps a storage failure
func Persist(orig error, msg string) error { return Wrap(orig, Persistence, msg) }

// Retryable reports whether repeating the same call may succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case NetworkUnavailable:
		return true
	case ServerError:
		return StatusOf(err) >= http.StatusInternalServerError
	default:
		return false
	}
}

// Message renders err as a single line suitable for a status bar.
func Message(err error) string {
	if err == nil {
		return ""
	}
	e, ok := As(err)
	if !ok {
		return err.Error()
	}
	switch e.kind {
	case NetworkUnavailable:
		return "You appear to be offline"
	case ServerError:
		if e.status > 0 {
			return fmt.Sprintf("Server error (%d)", e.status)
		}
		return "Server error"
	default:
		return e.msg
	}
}
