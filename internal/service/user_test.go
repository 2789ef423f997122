package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

func TestUserStore_Register_Success(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user, err := e.users.Register(ctx, "minsu", "minsu@example.com", "passw0rd!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected user ID to be assigned")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected role user, got %s", user.Role)
	}
	if user.PasswordHash == "passw0rd!" || user.PasswordHash == "" {
		t.Fatal("expected a one-way digest, not the raw password")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestUserStore_Register_StoredFieldNames(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if _, err := e.users.Register(ctx, "minsu", "minsu@example.com", "passw0rd!"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// The users collection serializes with the same camelCase field names
	// as every other persisted collection.
	raw, err := e.kv.Get(ctx, domain.KeyUsers)
	if err != nil {
		t.Fatalf("Get users collection: %v", err)
	}
	for _, field := range []string{`"id"`, `"username"`, `"email"`, `"passwordHash"`, `"role"`, `"createdAt"`} {
		if !strings.Contains(raw, field) {
			t.Fatalf("expected stored users to contain %s, got %s", field, raw)
		}
	}
	if strings.Contains(raw, `"PasswordHash"`) {
		t.Fatalf("stored users must not use exported field names: %s", raw)
	}
}

func TestUserStore_Register_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if _, err := e.users.Register(ctx, "first", "dup@example.com", "passw0rd!"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := e.users.Register(ctx, "second", "dup@example.com", "passw0rd!")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// Case differences do not evade the uniqueness check.
	_, err = e.users.Register(ctx, "third", "DUP@example.com", "passw0rd!")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail for case variant, got %v", err)
	}
}

func TestUserStore_Register_InvalidFields(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "a", "a@example.com", "passw0rd!"},
		{"long username", strings.Repeat("x", 21), "a@example.com", "passw0rd!"},
		{"bad email", "tester", "not-an-email", "passw0rd!"},
		{"weak password", "tester", "a@example.com", "short"},
		{"password without special", "tester", "a@example.com", "password1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.users.Register(ctx, tc.username, tc.email, tc.password)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestUserStore_Register_AdminAllowlist(t *testing.T) {
	e := newTestEnv(t)

	user, err := e.users.Register(context.Background(), "boss", "admin@example.com", "passw0rd!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
}

func TestUserStore_Register_SequentialIDs(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u1, err := e.users.Register(ctx, "first", "one@example.com", "passw0rd!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	u2, err := e.users.Register(ctx, "second", "two@example.com", "passw0rd!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u2.ID != u1.ID+1 {
		t.Fatalf("expected sequential ids, got %d then %d", u1.ID, u2.ID)
	}
}

func TestUserStore_Authenticate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if _, err := e.users.Register(ctx, "tester", "login@example.com", "passw0rd!"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := e.users.Authenticate(ctx, "login@example.com", "passw0rd!")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Email != "login@example.com" {
		t.Fatalf("unexpected user %s", user.Email)
	}

	if _, err := e.users.Authenticate(ctx, "login@example.com", "wrong-pass1!"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, err := e.users.Authenticate(ctx, "nobody@example.com", "passw0rd!"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown email, got %v", err)
	}
}
