// Package memory implements server storage in process memory.
// It is used with the "memory" database driver and as a fake in tests.
// All methods return copies, so callers may mutate results freely.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/authkeeper/internal/models"
	"github.com/iudanet/authkeeper/internal/server/storage"
)

// Storage is a mutex-guarded in-memory storage
type Storage struct {
	users    map[string]models.User
	emails   map[string]string // email -> user id
	sessions map[string]models.Session
	codes    map[string]models.VerificationCode
	mu       sync.RWMutex
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty storage
func New() *Storage {
	return &Storage{
		users:    make(map[string]models.User),
		emails:   make(map[string]string),
		sessions: make(map[string]models.Session),
		codes:    make(map[string]models.VerificationCode),
	}
}

// Ping always succeeds
func (s *Storage) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Storage) Close() error { return nil }

// ExistsByEmail reports whether a user with this email exists
func (s *Storage) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.emails[email]
	return ok, nil
}

// CreateUser creates a new user; email uniqueness is checked under the write lock
func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[user.Email]; ok {
		return storage.ErrUserAlreadyExists
	}

	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

// SetVerified marks the user's email as verified
func (s *Storage) SetVerified(_ context.Context, userID string, updatedAt time.Time) (*models.User, error) {
	return s.updateUser(userID, updatedAt, func(u *models.User) { u.Verified = true })
}

// UpdatePassword replaces the password hash
func (s *Storage) UpdatePassword(_ context.Context, userID, passwordHash string, updatedAt time.Time) (*models.User, error) {
	return s.updateUser(userID, updatedAt, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (s *Storage) updateUser(userID string, updatedAt time.Time, mutate func(u *models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	mutate(&user)
	user.UpdatedAt = updatedAt
	s.users[userID] = user
	return &user, nil
}

// CreateSession stores a new session
func (s *Storage) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

// GetSession retrieves session by ID
func (s *Storage) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return &session, nil
}

// SaveSession persists the session expiry
func (s *Storage) SaveSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return storage.ErrSessionNotFound
	}

	stored.ExpiresAt = session.ExpiresAt
	stored.UserAgent = session.UserAgent
	s.sessions[session.ID] = stored
	return nil
}

// DeleteSession deletes session by ID, missing session is not an error
func (s *Storage) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// DeleteUserSessions deletes all sessions for a user
func (s *Storage) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ListActiveSessions returns unexpired sessions of the user, newest first
func (s *Storage) ListActiveSessions(_ context.Context, userID string, now time.Time) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := []*models.Session{}
	for _, session := range s.sessions {
		if session.UserID == userID && session.Active(now) {
			sessions = append(sessions, &session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// DeleteUserSession deletes one session owned by the user
func (s *Storage) DeleteUserSession(_ context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return storage.ErrSessionNotFound
	}

	delete(s.sessions, sessionID)
	return nil
}

// CreateCode stores a new verification code
func (s *Storage) CreateCode(_ context.Context, code *models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[code.ID] = *code
	return nil
}

// FindValidCode retrieves an unexpired code of the given type
func (s *Storage) FindValidCode(
	_ context.Context,
	codeID string,
	codeType models.VerificationCodeType,
	now time.Time,
) (*models.VerificationCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code, ok := s.codes[codeID]
	if !ok || !code.Valid(codeType, now) {
		return nil, storage.ErrCodeNotFound
	}
	return &code, nil
}

// DeleteCode deletes code by ID
func (s *Storage) DeleteCode(_ context.Context, codeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[codeID]; !ok {
		return storage.ErrCodeNotFound
	}
	delete(s.codes, codeID)
	return nil
}

// CountCodesSince counts unexpired codes of the type created at or after since
func (s *Storage) CountCodesSince(
	_ context.Context,
	userID string,
	codeType models.VerificationCodeType,
	since, now time.Time,
) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, code := range s.codes {
		if code.UserID == userID && code.Type == codeType &&
			!code.CreatedAt.Before(since) && code.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}
