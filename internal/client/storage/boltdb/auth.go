package boltdb

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/authkeeper/internal/client/storage"
)

// Сессия одна на файл базы, хранится под фиксированным ключом
var authKey = []byte("current")

// SaveAuth stores authentication data, replacing the previous session
func (s *Storage) SaveAuth(_ context.Context, auth *storage.AuthData) error {
	return s.putJSON(bucketAuth, authKey, auth)
}

// GetAuth returns the saved session or storage.ErrAuthNotFound
func (s *Storage) GetAuth(_ context.Context) (*storage.AuthData, error) {
	var auth storage.AuthData
	if err := s.getJSON(bucketAuth, authKey, &auth); err != nil {
		if errors.Is(err, errKeyNotFound) {
			return nil, storage.ErrAuthNotFound
		}
		return nil, err
	}
	return &auth, nil
}

// DeleteAuth removes the saved session (logout)
func (s *Storage) DeleteAuth(_ context.Context) error {
	if err := s.delete(bucketAuth, authKey); err != nil {
		if errors.Is(err, errKeyNotFound) {
			return storage.ErrAuthNotFound
		}
		return err
	}
	return nil
}

// IsAuthenticated reports whether a refreshable session exists at now.
// Истекший access токен не мешает: клиент обновит его через refresh.
func (s *Storage) IsAuthenticated(ctx context.Context, now time.Time) (bool, error) {
	auth, err := s.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return false, nil
		}
		return false, err
	}

	return auth.RefreshValid(now), nil
}
