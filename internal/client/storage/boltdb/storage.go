// Package boltdb keeps the client session in a local bbolt file.
package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/authkeeper/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketAuth = []byte("auth")

	errKeyNotFound = errors.New("key not found")
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

var _ storage.AuthStorage = (*Storage)(nil)

// New opens (or creates) the database file at dbPath
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Таймаут нужен, если файл держит другой процесс authkeeper
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database; repeated calls are no-ops
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAuth); err != nil {
			return fmt.Errorf("failed to create %s bucket: %w", bucketAuth, err)
		}
		return nil
	})
}

// bucket возвращает bucket транзакции или ошибку, если его удалили
func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

func (s *Storage) putJSON(name, key []byte, v any) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
		return nil
	})
}

func (s *Storage) getJSON(name, key []byte, v any) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		// data валидна только внутри транзакции, Unmarshal копирует ее
		data := b.Get(key)
		if data == nil {
			return errKeyNotFound
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", name, err)
		}
		return nil
	})
}

func (s *Storage) delete(name, key []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		if b.Get(key) == nil {
			return errKeyNotFound
		}
		if err := b.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
		return nil
	})
}
