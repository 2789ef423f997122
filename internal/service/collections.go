package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

// loadCollection reads a JSON-encoded slice from the key/value store.
// A missing key yields an empty collection.
func loadCollection[T any](ctx context.Context, kv domain.KeyValueStore, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}

// saveCollection writes a slice back to the key/value store as JSON.
func saveCollection[T any](ctx context.Context, kv domain.KeyValueStore, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
