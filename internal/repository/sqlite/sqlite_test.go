package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"github.com/hanbit-dev/fleamart/internal/repository/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVStore_SetGetRemove(t *testing.T) {
	db := newTestDB(t)
	kv := db.KV()
	ctx := context.Background()

	if err := kv.Set(ctx, "csrfToken", "abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := kv.Get(ctx, "csrfToken")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("expected abc123, got %s", got)
	}

	// Overwrite replaces the value.
	if err := kv.Set(ctx, "csrfToken", "def456"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = kv.Get(ctx, "csrfToken")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got != "def456" {
		t.Fatalf("expected def456, got %s", got)
	}

	if err := kv.Remove(ctx, "csrfToken"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := kv.Get(ctx, "csrfToken"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestKVStore_GetMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.KV().Get(context.Background(), "no-such-key")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStore_RemoveMissingIsNoop(t *testing.T) {
	db := newTestDB(t)

	if err := db.KV().Remove(context.Background(), "no-such-key"); err != nil {
		t.Fatalf("Remove missing key: %v", err)
	}
}

func TestBlobStore_SaveGetDelete(t *testing.T) {
	db := newTestDB(t)
	blobs := db.Blobs()
	ctx := context.Background()

	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	if err := blobs.Save(ctx, "product-images/abc", data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := blobs.Get(ctx, "product-images/abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatal("blob round trip mismatch")
	}

	if err := blobs.Delete(ctx, "product-images/abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := blobs.Get(ctx, "product-images/abc"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// Running migrations again must not fail or duplicate schema.
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
