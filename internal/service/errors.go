package service

import "errors"

var (
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Error is a user-facing failure: Kind is one of the sentinels above and
// Message is safe to return to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// ErrTokenGeneration hides signing and storage failures behind one message.
var ErrTokenGeneration = newError(ErrInternal, "Something went wrong while generating refresh and access token")

type RefreshFailure int

const (
	RefreshMissing RefreshFailure = iota + 1
	RefreshInvalid
	RefreshUnknownUser
	RefreshSuperseded
	RefreshIssueFailed
)

func (f RefreshFailure) String() string {
	switch f {
	case RefreshMissing:
		return "missing"
	case RefreshInvalid:
		return "invalid"
	case RefreshUnknownUser:
		return "unknown_user"
	case RefreshSuperseded:
		return "superseded"
	case RefreshIssueFailed:
		return "issue_failed"
	default:
		return "unknown"
	}
}

// RefreshError is the failed outcome of a refresh attempt. Every reason is
// an authentication failure for the caller.
type RefreshError struct {
	Reason RefreshFailure
	Err    error
}

func (e *RefreshError) Error() string {
	switch e.Reason {
	case RefreshMissing:
		return "Unauthorized request"
	case RefreshUnknownUser:
		return "Invalid refresh token"
	case RefreshSuperseded:
		return "Refresh token is expired or used"
	case RefreshIssueFailed:
		return "Could not refresh access token"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "Invalid refresh token"
}

func (e *RefreshError) Is(target error) bool {
	return target == ErrInvalidRefreshToken || target == ErrUnauthorized
}

func (e *RefreshError) Unwrap() error { return e.Err }
