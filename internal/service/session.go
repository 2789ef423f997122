package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

// defaultIdleTimeout is the inactivity window after which a session is
// terminated.
const defaultIdleTimeout = 30 * time.Minute

// SessionConfig tunes the SessionManager. Zero values pick the defaults:
// 30-minute idle timeout, no simulated latency, notices to slog.
type SessionConfig struct {
	IdleTimeout      time.Duration
	SimulatedLatency time.Duration
	// Notify delivers user-visible notices (e.g. timeout-induced logout) to
	// the presentation layer.
	Notify func(message string)
}

// SessionManager owns the login/logout state machine: issuing and storing
// session tokens, scheduling the idle timeout, and rotating the
// anti-forgery token after every authenticated mutation.
type SessionManager struct {
	kv       domain.KeyValueStore
	tokens   *TokenService
	audit    *AuditLog
	users    *UserStore
	throttle *LoginThrottle
	net      simulatedNetwork

	idleTimeout time.Duration
	notify      func(string)

	// timer callbacks run on their own goroutine, so rescheduling must be
	// guarded even though the system assumes a single logical actor.
	mu    sync.Mutex
	timer *time.Timer
}

// sessionSnapshot is the user record persisted for the current session.
// It never contains the password digest.
type sessionSnapshot struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(kv domain.KeyValueStore, tokens *TokenService, audit *AuditLog, users *UserStore, throttle *LoginThrottle, cfg SessionConfig) *SessionManager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Notify == nil {
		cfg.Notify = func(message string) {
			slog.Info("session notice", "message", message)
		}
	}
	return &SessionManager{
		kv:          kv,
		tokens:      tokens,
		audit:       audit,
		users:       users,
		throttle:    throttle,
		net:         simulatedNetwork{latency: cfg.SimulatedLatency},
		idleTimeout: cfg.IdleTimeout,
		notify:      cfg.Notify,
	}
}

// Initialize is the page-load analog: it rotates the anti-forgery token,
// self-heals any stale session state, and records the load.
func (m *SessionManager) Initialize(ctx context.Context) error {
	if err := m.RotateCSRFToken(ctx); err != nil {
		return err
	}
	m.IsLoggedIn(ctx) // clears expired or malformed session state
	return m.audit.Append(ctx, "page_load", nil)
}

// CSRFToken returns the currently stored anti-forgery token, issuing one if
// none exists yet.
func (m *SessionManager) CSRFToken(ctx context.Context) (string, error) {
	token, err := m.kv.Get(ctx, domain.KeyCSRFToken)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if err := m.RotateCSRFToken(ctx); err != nil {
		return "", err
	}
	return m.kv.Get(ctx, domain.KeyCSRFToken)
}

// RotateCSRFToken replaces the stored anti-forgery token with a fresh one.
func (m *SessionManager) RotateCSRFToken(ctx context.Context) error {
	return m.kv.Set(ctx, domain.KeyCSRFToken, m.tokens.IssueCSRFToken(ctx))
}

// RequireCSRF rejects a state-mutating call whose presented token is not
// equal to the currently stored one. Mismatches are audited but the caller
// only sees a generic rejection.
func (m *SessionManager) RequireCSRF(ctx context.Context, presented string) error {
	stored, err := m.kv.Get(ctx, domain.KeyCSRFToken)
	if err != nil || presented == "" || presented != stored {
		if auditErr := m.audit.Append(ctx, "security_alert", map[string]any{
			"type": "csrf_mismatch",
		}); auditErr != nil {
			slog.Error("record csrf mismatch", "error", auditErr)
		}
		return domain.ErrSecurityRejected
	}
	return nil
}

// Login authenticates a user and establishes a session. The presented
// anti-forgery token must match the stored one, and repeated failures for
// the same email are throttled.
func (m *SessionManager) Login(ctx context.Context, email, password, csrfToken string) (*domain.User, error) {
	if err := m.RequireCSRF(ctx, csrfToken); err != nil {
		return nil, err
	}

	if !m.throttle.Allow(email) {
		if err := m.audit.Append(ctx, "security_alert", map[string]any{
			"type":  "login_throttled",
			"email": email,
		}); err != nil {
			slog.Error("record throttled login", "error", err)
		}
		return nil, domain.ErrRateLimited
	}

	if err := m.net.roundTrip(ctx); err != nil {
		return nil, err
	}

	user, err := m.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			if auditErr := m.audit.Append(ctx, "login_failed", map[string]any{
				"email": email,
			}); auditErr != nil {
				slog.Error("record failed login", "error", auditErr)
			}
		}
		return nil, err
	}

	if err := m.establish(ctx, user); err != nil {
		return nil, err
	}

	if err := m.audit.Append(ctx, "login_success", map[string]any{
		"userId": user.ID,
		"email":  user.Email,
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// Signup registers a new account and logs it straight in.
func (m *SessionManager) Signup(ctx context.Context, username, email, password, csrfToken string) (*domain.User, error) {
	if err := m.RequireCSRF(ctx, csrfToken); err != nil {
		return nil, err
	}

	if err := m.net.roundTrip(ctx); err != nil {
		return nil, err
	}

	user, err := m.users.Register(ctx, username, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrDuplicateEmail) {
			if auditErr := m.audit.Append(ctx, "signup_failed", map[string]any{
				"email": email,
			}); auditErr != nil {
				slog.Error("record failed signup", "error", auditErr)
			}
		}
		return nil, err
	}

	if err := m.establish(ctx, user); err != nil {
		return nil, err
	}

	if err := m.audit.Append(ctx, "signup_success", map[string]any{
		"userId": user.ID,
		"email":  user.Email,
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// establish stores a fresh session token and user snapshot, arms the idle
// timer, and rotates the anti-forgery token.
func (m *SessionManager) establish(ctx context.Context, user *domain.User) error {
	token, err := m.tokens.IssueSessionToken(user)
	if err != nil {
		return err
	}
	if err := m.kv.Set(ctx, domain.KeySessionToken, token); err != nil {
		return err
	}

	snapshot, err := json.Marshal(sessionSnapshot{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := m.kv.Set(ctx, domain.KeySessionUser, string(snapshot)); err != nil {
		return err
	}

	m.armIdleTimer()
	return m.RotateCSRFToken(ctx)
}

// Logout terminates the session explicitly: clears session storage, cancels
// the idle timer, and records the logout.
func (m *SessionManager) Logout(ctx context.Context) error {
	if claims, err := m.CurrentClaims(ctx); err == nil {
		if auditErr := m.audit.Append(ctx, "logout", map[string]any{
			"userId": claims.UserID(),
			"email":  claims.Email,
		}); auditErr != nil {
			slog.Error("record logout", "error", auditErr)
		}
	}
	m.cancelIdleTimer()
	return m.clearSession(ctx)
}

// Touch resets the idle timer to a fresh window. Qualifying user activity
// (pointer or key input) while authenticated should call this.
func (m *SessionManager) Touch(ctx context.Context) {
	if m.IsLoggedIn(ctx) {
		m.armIdleTimer()
	}
}

// IsLoggedIn reports whether a well-formed, unexpired session token is
// stored. A malformed or expired token is treated as "not logged in" and
// the stored session is cleared as a side effect.
func (m *SessionManager) IsLoggedIn(ctx context.Context) bool {
	_, err := m.CurrentClaims(ctx)
	return err == nil
}

// IsAdmin reports whether the current session carries the admin role.
func (m *SessionManager) IsAdmin(ctx context.Context) bool {
	claims, err := m.CurrentClaims(ctx)
	return err == nil && claims.IsAdmin()
}

// CurrentClaims returns the claims of the current session, clearing stored
// session state if the token turns out malformed or expired.
func (m *SessionManager) CurrentClaims(ctx context.Context) (*SessionClaims, error) {
	token, err := m.kv.Get(ctx, domain.KeySessionToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	claims, err := m.tokens.VerifySessionToken(token)
	if err != nil {
		if clearErr := m.clearSession(ctx); clearErr != nil {
			slog.Error("clear stale session", "error", clearErr)
		}
		m.cancelIdleTimer()
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (m *SessionManager) clearSession(ctx context.Context) error {
	if err := m.kv.Remove(ctx, domain.KeySessionToken); err != nil {
		return err
	}
	return m.kv.Remove(ctx, domain.KeySessionUser)
}

func (m *SessionManager) armIdleTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.idleTimeout, m.onIdleTimeout)
}

func (m *SessionManager) cancelIdleTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// onIdleTimeout fires when no qualifying activity arrived within the idle
// window. A stale timer that outlived its session does nothing.
func (m *SessionManager) onIdleTimeout() {
	ctx := context.Background()

	claims, err := m.CurrentClaims(ctx)
	if err != nil {
		return
	}

	if err := m.audit.Append(ctx, "session_expired", map[string]any{
		"userId": claims.UserID(),
		"email":  claims.Email,
	}); err != nil {
		slog.Error("record session expiry", "error", err)
	}
	m.cancelIdleTimer()
	if err := m.clearSession(ctx); err != nil {
		slog.Error("clear expired session", "error", err)
	}
	m.notify("Your session has expired. Please log in again.")
}
