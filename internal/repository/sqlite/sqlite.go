package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hanbit-dev/fleamart/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection and hands out the stores backed by it.
type DB struct {
	sqlDB *sql.DB
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Set a reasonable connection pool for SQLite.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{sqlDB: db}, nil
}

// Migrate applies all pending schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.sqlDB)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.sqlDB.Close()
}

// KV returns the SQLite-backed key/value store.
func (d *DB) KV() *KVStore {
	return &KVStore{db: d.sqlDB}
}

// Blobs returns the SQLite-backed blob store.
func (d *DB) Blobs() *BlobStore {
	return &BlobStore{db: d.sqlDB}
}
