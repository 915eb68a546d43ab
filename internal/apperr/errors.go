// Package apperr defines the error kinds shared by every service layer.
//
// Kinds are sentinel values matched with errors.Is. An *Error pairs a kind
// with the message that is safe to hand back to the client.
package apperr

import (
	"errors"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrUpstream        = errors.New("upstream failure")
)

// Error is a classified failure carrying a client-facing message.
type Error struct {
	Kind    error
	Message string
	cause   error
}

// New returns an *Error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an *Error of the given kind that keeps cause reachable
// through errors.Is/As.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Upstream classifies an unexpected store or identity failure. The cause's
// message is forwarded unchanged.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: ErrUpstream, Message: err.Error(), cause: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Message returns the client-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
