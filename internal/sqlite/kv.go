package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ganot/atelier/internal/storage"
)

// KVStore implements storage.KV on the kv table.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new KVStore
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}
