package application

import (
	"errors"
	"fmt"
)

// Kind classifies failures so that transports can map them without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindMissingField
	KindConflict
	KindInvalidCredential
	KindUnauthenticated
	KindNotFound
	KindInvalidQuery
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing_field"
	case KindConflict:
		return "conflict"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindInvalidQuery:
		return "invalid_query"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is a classified application failure. Msg is safe to show to clients; Err is
// the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind and message so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

var (
	ErrEmailExists        = &Error{Kind: KindConflict, Msg: "email already exists"}
	ErrAccountNotFound    = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredential, Msg: "invalid password"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Msg: "unauthorized"}
	ErrNoteNotFound       = &Error{Kind: KindNotFound, Msg: "Note not found"}
	ErrNoNotesFound       = &Error{Kind: KindNotFound, Msg: "No notes found"}
	ErrInvalidQuery       = &Error{Kind: KindInvalidQuery, Msg: "Invalid search query"}
	ErrExportUnavailable  = &Error{Kind: KindInternal, Msg: "export unavailable"}
	ErrPasswordTooLong    = &Error{Kind: KindInvalidInput, Msg: "password must be at most 72 bytes"}
)

// MissingField reports an absent required input.
func MissingField(field string) *Error {
	return &Error{Kind: KindMissingField, Msg: field + " is required"}
}

// Internal wraps an unexpected storage or runtime fault.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: "Internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of err; unclassified errors are internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
