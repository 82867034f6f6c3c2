package storage

import (
	"context"
	"time"

	"github.com/iudanet/authkeeper/internal/models"
)

// VerificationCodeStorage defines interface for verification code persistence.
// The code ID is the secret handed to the user.
type VerificationCodeStorage interface {
	// CreateCode stores a new verification code
	CreateCode(ctx context.Context, code *models.VerificationCode) error

	// FindValidCode retrieves a code by ID and type with expiresAt > now
	// Returns ErrCodeNotFound if code doesn't exist, has another type or is expired
	FindValidCode(ctx context.Context, codeID string, codeType models.VerificationCodeType, now time.Time) (*models.VerificationCode, error)

	// DeleteCode deletes code by ID
	// Returns ErrCodeNotFound if code doesn't exist
	DeleteCode(ctx context.Context, codeID string) error

	// CountCodesSince counts the user's codes of the given type created at or after since
	// and still unexpired at now
	CountCodesSince(ctx context.Context, userID string, codeType models.VerificationCodeType, since, now time.Time) (int, error)
}

// Storage is the full set of stores used by the server
type Storage interface {
	UserStorage
	SessionStorage
	VerificationCodeStorage

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
	// Close releases the underlying resources
	Close() error
}
