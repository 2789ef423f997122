package domain

import "time"

// AuditEntry is one record in the append-only activity log.
// Data holds arbitrary action-specific detail; consumers must treat
// every value as non-executable text.
type AuditEntry struct {
	Action    string         `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
