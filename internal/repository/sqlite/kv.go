package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

// KVStore implements domain.KeyValueStore using SQLite.
// Every value is structured text, so a single two-column table is enough.
type KVStore struct {
	db *sql.DB
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE key = ?", key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("query kv entry: %w", err)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert kv entry: %w", err)
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_entries WHERE key = ?", key,
	)
	if err != nil {
		return fmt.Errorf("delete kv entry: %w", err)
	}
	return nil
}
