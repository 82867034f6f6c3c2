package storage

import (
	"context"
	"time"

	"github.com/iudanet/authkeeper/internal/models"
)

// SessionStorage defines interface for session persistence
type SessionStorage interface {
	// CreateSession stores a new session
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves session by ID, expired or not
	// Returns ErrSessionNotFound if session doesn't exist
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// SaveSession persists a mutated session (expiry extension)
	// Returns ErrSessionNotFound if session doesn't exist
	SaveSession(ctx context.Context, session *models.Session) error

	// DeleteSession deletes session by ID
	// Deleting a missing session is not an error
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteUserSessions deletes all sessions for a user
	// Returns number of deleted sessions
	DeleteUserSessions(ctx context.Context, userID string) (int, error)

	// ListActiveSessions returns the user's sessions with expiresAt > now, newest first
	// Returns empty slice if no sessions found
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]*models.Session, error)

	// DeleteUserSession deletes one session owned by the user
	// Returns ErrSessionNotFound if session doesn't exist or belongs to someone else
	DeleteUserSession(ctx context.Context, sessionID, userID string) error
}
