package storage

import (
	"context"
	"time"

	"github.com/iudanet/authkeeper/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// ExistsByEmail reports whether a user with this email exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if email is already taken;
	// the uniqueness is enforced by the storage, not by ExistsByEmail
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// SetVerified marks the user's email as verified and returns the updated user.
	// updatedAt becomes the user's UpdatedAt.
	// Returns ErrUserNotFound if user doesn't exist
	SetVerified(ctx context.Context, userID string, updatedAt time.Time) (*models.User, error)

	// UpdatePassword replaces the password hash and returns the updated user
	// Returns ErrUserNotFound if user doesn't exist
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) (*models.User, error)
}
