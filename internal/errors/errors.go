package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of an itinerary run.
type Kind string

const (
	KindInputFileUnreadable Kind = "InputFileUnreadable"
	KindMalformedRecord     Kind = "MalformedRecord"
	KindCapacityExceeded    Kind = "CapacityExceeded"
	KindInvalidArgument     Kind = "InvalidArgument"
)

// Error is a typed error carrying its kind and, for input problems, the
// 1-based line number where it was detected (0 if unknown).
type Error struct {
	Kind    Kind
	Message string
	Line    int
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinel values below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a new Error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// AtLine returns a copy of e annotated with a line number.
func (e *Error) AtLine(line int) *Error {
	clone := *e
	clone.Line = line
	return &clone
}

// Sentinels for errors.Is.
var (
	ErrInputFileUnreadable = &Error{Kind: KindInputFileUnreadable, Message: "input file unreadable"}
	ErrMalformedRecord     = &Error{Kind: KindMalformedRecord, Message: "malformed record"}
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded, Message: "capacity exceeded"}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
)

// KindOf reports the kind of err, or "" if err is not (and does not wrap) an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
