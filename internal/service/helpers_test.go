package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"github.com/hanbit-dev/fleamart/internal/repository/sqlite"
	"github.com/hanbit-dev/fleamart/internal/service"
)

// testEnv wires the full core against a throwaway SQLite database.
type testEnv struct {
	kv       *sqlite.KVStore
	audit    *service.AuditLog
	valid    *service.Validator
	tokens   *service.TokenService
	users    *service.UserStore
	sessions *service.SessionManager
	catalog  *service.CatalogStore
	reports  *service.ReportStore
	chats    *service.ChatStore
	notices  chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	kv := db.KV()
	audit := service.NewAuditLog(kv)
	valid := service.NewValidator(audit)
	tokens := service.NewTokenService(audit)
	// Cost 4 for fast tests; admin@example.com gets the admin role.
	users := service.NewUserStore(kv, valid, 4, []string{"admin@example.com"})
	throttle := service.NewLoginThrottle(time.Minute, 5)
	t.Cleanup(throttle.Close)

	notices := make(chan string, 8)
	sessions := service.NewSessionManager(kv, tokens, audit, users, throttle, service.SessionConfig{
		Notify: func(msg string) { notices <- msg },
	})
	catalog := service.NewCatalogStore(kv, db.Blobs(), sessions, valid, audit, 0)
	reports := service.NewReportStore(kv, sessions, valid, catalog, audit)
	chats := service.NewChatStore(kv, sessions, users, valid, audit)

	return &testEnv{
		kv:       kv,
		audit:    audit,
		valid:    valid,
		tokens:   tokens,
		users:    users,
		sessions: sessions,
		catalog:  catalog,
		reports:  reports,
		chats:    chats,
		notices:  notices,
	}
}

// csrf returns the currently stored anti-forgery token.
func (e *testEnv) csrf(t *testing.T) string {
	t.Helper()
	token, err := e.sessions.CSRFToken(context.Background())
	if err != nil {
		t.Fatalf("CSRFToken: %v", err)
	}
	return token
}

// signup registers and logs in a fresh user.
func (e *testEnv) signup(t *testing.T, username, email, password string) *domain.User {
	t.Helper()
	user, err := e.sessions.Signup(context.Background(), username, email, password, e.csrf(t))
	if err != nil {
		t.Fatalf("Signup %s: %v", email, err)
	}
	return user
}

// pngImage returns bytes that sniff as image/png.
func pngImage() []byte {
	sig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return append(sig, make([]byte, 64)...)
}

// registerProduct creates a listing for the current session.
func (e *testEnv) registerProduct(t *testing.T, title, description string, price int64) int64 {
	t.Helper()
	p, err := e.catalog.Register(context.Background(), service.RegisterProductInput{
		Title:       title,
		Price:       price,
		Description: description,
		Image:       pngImage(),
		CSRFToken:   e.csrf(t),
	})
	if err != nil {
		t.Fatalf("Register product %q: %v", title, err)
	}
	return p.ID
}

func lastAuditAction(t *testing.T, e *testEnv) string {
	t.Helper()
	entries, err := e.audit.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one audit entry")
	}
	return entries[len(entries)-1].Action
}
