package domain

import "context"

// KeyValueStore is the persisted mapping from string keys to string values
// that the core runs on. Implementations must return ErrNotFound for
// absent keys. Values are structured text (JSON records or collections).
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// BlobStore abstracts raw byte storage for product images.
// The initial implementation stores BLOBs in SQLite; this interface
// allows swapping to filesystem, S3, or another backend later.
type BlobStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Database defines lifecycle operations for the underlying database.
// Each implementation owns its own migration files and strategy,
// ensuring the entire backend is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}

// Well-known keys in the KeyValueStore.
const (
	KeyCSRFToken    = "csrfToken"
	KeySessionToken = "token"
	KeySessionUser  = "user"
	KeyUsers        = "users"
	KeyProducts     = "products"
	KeyBlockedUsers = "blockedUsers"
	KeyActivityLogs = "activityLogs"
	KeyReports      = "reports"
	KeyChatRooms    = "chatRooms"
	KeyChatMessages = "chatMessages"
)
