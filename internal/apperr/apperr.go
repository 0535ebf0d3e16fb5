// Package apperr defines the error kinds every operation reports to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the command surface can map it to a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindColumnNotFound
	KindSelector
	KindPattern
	KindNoTableFound
	KindNetwork
	KindDecode
	KindIO
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindColumnNotFound:
		return "column_not_found"
	case KindSelector:
		return "invalid_selector"
	case KindPattern:
		return "invalid_pattern"
	case KindNoTableFound:
		return "no_table_found"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindIO:
		return "io"
	case KindInvalid:
		return "invalid"
	}
	return "unknown"
}

// Error carries a Kind plus the operation and the offending subject
// (path, column, selector or endpoint).
type Error struct {
	Kind    Kind
	Op      string
	Msg     string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without an underlying cause.
func New(kind Kind, op, msg, subject string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Subject: subject}
}

// Wrap builds an Error around cause. A nil cause yields nil.
func Wrap(cause error, kind Kind, op, msg, subject string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Subject: subject, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func NotFound(op, what, subject string) *Error {
	return New(KindNotFound, op, what+" not found", subject)
}

func ColumnNotFound(op, role, column string) *Error {
	return New(KindColumnNotFound, op, role+" column not found", column)
}

func InvalidSelector(op, which, selector string, cause error) error {
	return Wrap(cause, KindSelector, op, "invalid "+which+" selector", selector)
}

func InvalidPattern(op, which, pattern string, cause error) error {
	return Wrap(cause, KindPattern, op, "invalid "+which+" pattern", pattern)
}

func NoTableFound(op, source string) *Error {
	return New(KindNoTableFound, op, "no array of objects in response", source)
}
