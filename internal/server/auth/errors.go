package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. The HTTP layer maps it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindConflict
	KindUnauthorized
	KindNotFound
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Client-facing messages.
const (
	MsgEmailExists         = "Email already exists"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgInvalidRefreshToken = "Invalid refresh token"
	MsgInvalidAccessToken  = "Invalid access token"
	MsgSessionExpired      = "Session expired"
	MsgInvalidCode         = "Invalid or expired code"
	MsgInvalidResetCode    = "Invalid or expired verification code"
	MsgVerifyEmailFailed   = "Failed to verify email"
	MsgUserNotFound        = "User not found"
	MsgSessionNotFound     = "Session not found"
	MsgTooManyRequests     = "Too many requests, please try again later"
	MsgResetPasswordFailed = "Failed to reset password"
	MsgResetEmailFailed    = "Failed to send password reset email"
	MsgInternalServerError = "Internal server error"
)

// Error is a typed service failure: a kind, a client-facing message and
// an optional cause that is logged but never shown to clients.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// internal wraps an unexpected failure.
func internal(op string, cause error) *Error {
	return newError(KindInternal, MsgInternalServerError, fmt.Errorf("%s: %w", op, cause))
}

// KindOf returns the kind of err; errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgInternalServerError
}

// BadRequest builds a validation failure for the transport layer.
func BadRequest(message string, cause error) *Error {
	return newError(KindBadRequest, message, cause)
}
