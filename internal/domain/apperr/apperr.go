// Package apperr defines the error taxonomy shared by the policy,
// lifecycle and application layers. Services return errors carrying a
// Kind; the HTTP boundary maps kinds to status codes and never inspects
// error strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindUnauthenticated       Kind = "unauthenticated"
	KindNotAuthorized         Kind = "not_authorized"
	KindNotOwner              Kind = "not_owner"
	KindAdminRequired         Kind = "admin_required"
	KindPremiumRequiresReview Kind = "premium_requires_review"
	KindInvalidToken          Kind = "invalid_token"
	KindAlreadyExists         Kind = "already_exists"
	KindDeliveryFailed        Kind = "delivery_failed"
	KindInvalid               Kind = "invalid"
	KindInternal              Kind = "internal"
)

// Error is a domain error tagged with a Kind.
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

// E builds a tagged error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
