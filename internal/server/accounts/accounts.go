// Package accounts is the account directory: user records plus the credential check.
// Passwords are hashed explicitly in Create and UpdatePassword before they reach storage.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/internal/crypto"
	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/storage"
)

// ErrInvalidCredentials is returned by Authenticate for both an unknown email
// and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NewAccount holds the fields required to create a user.
type NewAccount struct {
	Name     string
	Email    string
	Password string
}

// Directory manages user accounts.
type Directory struct {
	users  storage.UserStorage
	hasher crypto.PasswordHasher
	now    clock.Clock
}

// NewDirectory creates a Directory. A nil clock means the system clock.
func NewDirectory(users storage.UserStorage, hasher crypto.PasswordHasher, now clock.Clock) *Directory {
	if now == nil {
		now = clock.System
	}
	return &Directory{users: users, hasher: hasher, now: now}
}

// ExistsByEmail reports whether the email is taken.
func (d *Directory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return d.users.ExistsByEmail(ctx, email)
}

// Create hashes the password and inserts a new unverified user.
// Returns storage.ErrUserAlreadyExists when the email is taken.
func (d *Directory) Create(ctx context.Context, acc NewAccount) (*models.User, error) {
	hash, err := d.hasher.Hash(acc.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := d.now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        acc.Email,
		Name:         acc.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := d.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate returns the user owning email if password matches.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := d.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !d.hasher.Compare(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// FindByEmail returns the user with this email or storage.ErrUserNotFound.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.users.GetUserByEmail(ctx, email)
}

// Get returns the user by ID or storage.ErrUserNotFound.
func (d *Directory) Get(ctx context.Context, userID string) (*models.User, error) {
	return d.users.GetUserByID(ctx, userID)
}

// SetVerified marks the user's email as verified.
func (d *Directory) SetVerified(ctx context.Context, userID string) (*models.User, error) {
	return d.users.SetVerified(ctx, userID, d.now())
}

// UpdatePassword hashes password and stores it for the user.
func (d *Directory) UpdatePassword(ctx context.Context, userID, password string) (*models.User, error) {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return d.users.UpdatePassword(ctx, userID, hash, d.now())
}
