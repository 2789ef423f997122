package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/hanbit-dev/fleamart/internal/handler"
	"github.com/hanbit-dev/fleamart/internal/repository/sqlite"
	"github.com/hanbit-dev/fleamart/internal/service"
)

// testStack is the fully wired application behind an httptest server.
type testStack struct {
	sessions *service.SessionManager
	users    *service.UserStore
	catalog  *service.CatalogStore
	reports  *service.ReportStore
	audit    *service.AuditLog
	mux      *http.ServeMux
}

func newTestStack(t *testing.T) *testStack {
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
	users := service.NewUserStore(kv, valid, 4, []string{"admin@example.com"})
	throttle := service.NewLoginThrottle(time.Minute, 5)
	t.Cleanup(throttle.Close)
	sessions := service.NewSessionManager(kv, tokens, audit, users, throttle, service.SessionConfig{})
	catalog := service.NewCatalogStore(kv, db.Blobs(), sessions, valid, audit, 0)
	reports := service.NewReportStore(kv, sessions, valid, catalog, audit)
	chats := service.NewChatStore(kv, sessions, users, valid, audit)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, sessions, users, catalog, reports, chats, audit)

	return &testStack{
		sessions: sessions,
		users:    users,
		catalog:  catalog,
		reports:  reports,
		audit:    audit,
		mux:      mux,
	}
}

// csrf fetches the current anti-forgery token straight from the session
// manager, the same value GET /api/auth/csrf would return.
func (s *testStack) csrf(t *testing.T) string {
	t.Helper()
	token, err := s.sessions.CSRFToken(context.Background())
	if err != nil {
		t.Fatalf("CSRFToken: %v", err)
	}
	return token
}

// decodeBody decodes a JSON response body into dst.
func decodeBody(t *testing.T, body io.Reader, dst any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// jsonBody encodes v for use as a request body.
func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(data)
}

// pngBytes returns bytes that sniff as image/png.
func pngBytes() []byte {
	sig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return append(sig, make([]byte, 64)...)
}

// productForm builds a multipart body for POST /api/products.
func productForm(t *testing.T, title, description, price string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"title":       title,
		"description": description,
		"price":       price,
	} {
		if err := mw.WriteField(field, value); err != nil {
			t.Fatalf("write field %s: %v", field, err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
