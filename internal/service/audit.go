package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

// maxAuditEntries bounds the persisted activity log; the oldest entries
// are evicted first once the bound is reached.
const maxAuditEntries = 100

// AuditLog is the append-only, capacity-bounded log of security and
// activity events, persisted through the key/value store.
type AuditLog struct {
	kv  domain.KeyValueStore
	now func() time.Time
}

// NewAuditLog creates a new AuditLog.
func NewAuditLog(kv domain.KeyValueStore) *AuditLog {
	return &AuditLog{kv: kv, now: time.Now}
}

// Append records an activity event. The entry is also mirrored to slog so
// operators see it without reading the store.
func (l *AuditLog) Append(ctx context.Context, action string, data map[string]any) error {
	slog.Info("activity", "action", action, "data", data)

	entries, err := loadCollection[domain.AuditEntry](ctx, l.kv, domain.KeyActivityLogs)
	if err != nil {
		return err
	}

	entries = append(entries, domain.AuditEntry{
		Action:    action,
		Data:      data,
		Timestamp: l.now().UTC(),
	})
	if len(entries) > maxAuditEntries {
		entries = entries[len(entries)-maxAuditEntries:]
	}

	return saveCollection(ctx, l.kv, domain.KeyActivityLogs, entries)
}

// Entries returns the retained log, oldest first.
func (l *AuditLog) Entries(ctx context.Context) ([]domain.AuditEntry, error) {
	return loadCollection[domain.AuditEntry](ctx, l.kv, domain.KeyActivityLogs)
}
