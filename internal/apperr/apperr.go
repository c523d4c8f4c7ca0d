package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindConflict
	KindInternal
)

// CodeDuplicateFace marks a registration rejected because the submitted
// face already belongs to another user.
const CodeDuplicateFace = "DUPLICATE_FACE"

// Error carries a kind, an optional machine-readable code, and a message
// safe to surface to the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error (missing or malformed fields).
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Authf builds a credential error (unapproved user, bad password).
func Authf(format string, args ...any) error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error tagged with a code.
func Conflictf(code, format string, args ...any) error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected adapter failure. The underlying message is
// surfaced to the caller.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the machine-readable code attached to err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
