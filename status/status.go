// Package status provides the structured error taxonomy used across every
// package boundary of the storage engine. No panics escape a public API;
// every fallible operation returns a *Status (or nil) as its error value.
package status

import (
	"errors"
	"fmt"
)

// Kind classifies a Status. The zero value, Ok, is never returned as an
// error (callers check err == nil, not KindOf(err) == Ok).
type Kind int

const (
	Ok Kind = iota
	InvalidArgument
	NotFound
	OutOfRange
	IOError
	Corruption
	Unavailable
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case OutOfRange:
		return "OutOfRange"
	case IOError:
		return "IOError"
	case Corruption:
		return "Corruption"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Status is the concrete error type returned by every package in this
// module. It implements error and Unwrap so callers may use errors.Is/As
// against a wrapped cause while still classifying on Kind.
type Status struct {
	kind  Kind
	msg   string
	cause error
}

func (s *Status) Error() string {
	if s.cause != nil {
		return fmt.Sprintf("%s: %s: %v", s.kind, s.msg, s.cause)
	}
	return fmt.Sprintf("%s: %s", s.kind, s.msg)
}

func (s *Status) Unwrap() error { return s.cause }

// KindOf reports the Kind of err: Ok if err is nil, Unknown if err is not
// a *Status (or a wrapped one).
func KindOf(err error) Kind {
	if err == nil {
		return Ok
	}
	var s *Status
	if errors.As(err, &s) {
		return s.kind
	}
	return Unknown
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func newf(kind Kind, cause error, format string, args ...any) *Status {
	return &Status{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

func InvalidArgumentf(format string, args ...any) *Status {
	return newf(InvalidArgument, nil, format, args...)
}

func NotFoundf(format string, args ...any) *Status {
	return newf(NotFound, nil, format, args...)
}

func OutOfRangef(format string, args ...any) *Status {
	return newf(OutOfRange, nil, format, args...)
}

func IOErrorf(cause error, format string, args ...any) *Status {
	return newf(IOError, cause, format, args...)
}

func Corruptionf(format string, args ...any) *Status {
	return newf(Corruption, nil, format, args...)
}

func Unavailablef(format string, args ...any) *Status {
	return newf(Unavailable, nil, format, args...)
}

func Unknownf(cause error, format string, args ...any) *Status {
	return newf(Unknown, cause, format, args...)
}
