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

// CreateCode stores a new verification code
func (s *Storage) CreateCode(ctx context.Context, code *models.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (id, user_id, type, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		code.ID,
		code.UserID,
		string(code.Type),
		ts(code.ExpiresAt),
		ts(code.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification code: %w", err)
	}

	return nil
}

// FindValidCode retrieves an unexpired code of the given type
func (s *Storage) FindValidCode(
	ctx context.Context,
	codeID string,
	codeType models.VerificationCodeType,
	now time.Time,
) (*models.VerificationCode, error) {
	query := `
		SELECT id, user_id, type, expires_at, created_at
		FROM verification_codes
		WHERE id = ? AND type = ? AND expires_at > ?
	`

	code := &models.VerificationCode{}
	var codeTypeStr string

	err := s.queryRow(ctx, query, codeID, string(codeType), ts(now)).Scan(
		&code.ID,
		&code.UserID,
		&codeTypeStr,
		&code.ExpiresAt,
		&code.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}

	code.Type = models.VerificationCodeType(codeTypeStr)
	return code, nil
}

// DeleteCode deletes code by ID
func (s *Storage) DeleteCode(ctx context.Context, codeID string) error {
	result, err := s.exec(ctx, `DELETE FROM verification_codes WHERE id = ?`, codeID)
	if err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}

	rows, err := affected(result)
	if err != nil {
		return err
	}

	if rows == 0 {
		return storage.ErrCodeNotFound
	}

	return nil
}

// CountCodesSince counts unexpired codes of the type created at or after since
func (s *Storage) CountCodesSince(
	ctx context.Context,
	userID string,
	codeType models.VerificationCodeType,
	since, now time.Time,
) (int, error) {
	query := `
		SELECT COUNT(1)
		FROM verification_codes
		WHERE user_id = ? AND type = ? AND created_at >= ? AND expires_at > ?
	`

	var n int
	if err := s.queryRow(ctx, query, userID, string(codeType), ts(since), ts(now)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count verification codes: %w", err)
	}

	return n, nil
}
