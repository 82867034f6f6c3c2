package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound indicates that session was not found or belongs to another user
	ErrSessionNotFound = errors.New("session not found")

	// ErrCodeNotFound indicates that verification code was not found
	ErrCodeNotFound = errors.New("verification code not found")
)
