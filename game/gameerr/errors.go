// Package gameerr defines the error taxonomy shared by the session engine.
//
// Every failure the engine reports belongs to one of a small set of kinds.
// Packages define their own sentinels on top of these kinds, so callers can
// test either the precise condition (session.ErrSessionNotFound) or the
// broad kind (gameerr.ErrNotFound) with errors.Is.
package gameerr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrAlreadyRegistered     = errors.New("already registered")
	ErrAllocationExhausted   = errors.New("allocation exhausted")
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// Error is a failure with a message intended for the remote caller.
// It matches both its Kind and its cause through errors.Is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// New returns an Error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind that keeps err as its cause.
func Wrap(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var codes = []struct {
	kind error
	code string
}{
	{ErrInvalidArgument, "invalid_argument"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrAlreadyRegistered, "already_registered"},
	{ErrAllocationExhausted, "allocation_exhausted"},
	{ErrInternalInconsistency, "internal"},
}

// Code returns the wire code for err's kind. Unclassified errors are
// reported as "internal".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return "internal"
}
