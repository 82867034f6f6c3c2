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

// CreateSession stores a new session
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, user_agent, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		session.ID,
		session.UserID,
		session.UserAgent,
		ts(session.ExpiresAt),
		ts(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// GetSession retrieves session by ID
func (s *Storage) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, user_agent, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`

	session := &models.Session{}
	err := s.queryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.UserAgent,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// SaveSession persists the session expiry
func (s *Storage) SaveSession(ctx context.Context, session *models.Session) error {
	query := `UPDATE sessions SET expires_at = ?, user_agent = ? WHERE id = ?`

	result, err := s.exec(ctx, query, ts(session.ExpiresAt), session.UserAgent, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := affected(result)
	if err != nil {
		return err
	}

	if rows == 0 {
		return storage.ErrSessionNotFound
	}

	return nil
}

// DeleteSession deletes session by ID, missing session is not an error
func (s *Storage) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.exec(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions deletes all sessions for a user
func (s *Storage) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	result, err := s.exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}

	rows, err := affected(result)
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}

// ListActiveSessions returns unexpired sessions of the user, newest first
func (s *Storage) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, user_agent, expires_at, created_at
		FROM sessions
		WHERE user_id = ? AND expires_at > ?
		ORDER BY created_at DESC
	`

	rows, err := s.query(ctx, query, userID, ts(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query user sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	sessions := []*models.Session{}

	for rows.Next() {
		session := &models.Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.UserAgent,
			&session.ExpiresAt,
			&session.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteUserSession deletes one session owned by the user
func (s *Storage) DeleteUserSession(ctx context.Context, sessionID, userID string) error {
	result, err := s.exec(ctx, `DELETE FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := affected(result)
	if err != nil {
		return err
	}

	if rows == 0 {
		return storage.ErrSessionNotFound
	}

	return nil
}
