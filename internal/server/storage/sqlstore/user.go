package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/storage"
)

const userColumns = `id, email, name, password_hash, verified, created_at, updated_at`

// ExistsByEmail reports whether a user with this email exists
func (s *Storage) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return n > 0, nil
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Verified,
		ts(user.CreatedAt),
		ts(user.UpdatedAt),
	)

	if err != nil {
		// Проверяем на duplicate email
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
}

// SetVerified marks the user's email as verified
func (s *Storage) SetVerified(ctx context.Context, userID string, updatedAt time.Time) (*models.User, error) {
	query := `UPDATE users SET verified = ?, updated_at = ? WHERE id = ?`
	if err := s.updateUser(ctx, query, true, ts(updatedAt), userID); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

// UpdatePassword replaces the password hash
func (s *Storage) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) (*models.User, error) {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	if err := s.updateUser(ctx, query, passwordHash, ts(updatedAt), userID); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

func (s *Storage) updateUser(ctx context.Context, query string, args ...any) error {
	result, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := affected(result)
	if err != nil {
		return err
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}

	err := s.queryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Verified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
