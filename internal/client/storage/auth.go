package storage

import (
	"context"
	"time"
)

// AuthStorage defines interface for storing the client session on disk.
// Tokens are the server's cookie values and are stored as-is.
type AuthStorage interface {
	// SaveAuth stores authentication data
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if a refreshable session exists at now
	IsAuthenticated(ctx context.Context, now time.Time) (bool, error)
}

// AuthData - сохраненная сессия клиента: значения двух cookie и сроки их жизни
type AuthData struct {
	Email            string `json:"email"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`  // unix seconds
	RefreshExpiresAt int64  `json:"refresh_expires_at"` // unix seconds
}

// AccessValid reports whether the access token has not expired at now.
func (a *AuthData) AccessValid(now time.Time) bool {
	return a.AccessToken != "" && now.Unix() < a.AccessExpiresAt
}

// RefreshValid reports whether the refresh token has not expired at now.
func (a *AuthData) RefreshValid(now time.Time) bool {
	return a.RefreshToken != "" && now.Unix() < a.RefreshExpiresAt
}
