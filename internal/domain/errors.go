package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can map them to responses
// without inspecting messages.
type ErrorKind string

const (
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidState      ErrorKind = "invalid_state"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindNotImplemented    ErrorKind = "not_implemented"
)

// CodeUnsupportedFeeType narrows an invalid argument to a fee type with no
// configured structure.
const CodeUnsupportedFeeType = "unsupported_fee_type"

// Error is the error type returned by fee calculation and transaction
// state transitions. Msg is the human readable reason and is what Error()
// returns.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

// Is matches on kind, and on code when the target carries one, so that
// errors.Is(err, ErrInvalidArgument) holds for every invalid argument.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrUnsupportedFormat  = &Error{Kind: KindUnsupportedFormat}
	ErrNotImplemented     = &Error{Kind: KindNotImplemented}
	ErrUnsupportedFeeType = &Error{Kind: KindInvalidArgument, Code: CodeUnsupportedFeeType}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// UnsupportedFeeType reports a fee type with no configured structure.
func UnsupportedFeeType(t FeeType) error {
	return &Error{
		Kind: KindInvalidArgument,
		Code: CodeUnsupportedFeeType,
		Msg:  fmt.Sprintf("unsupported fee type: %s", t),
	}
}
