package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand/v2"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hanbit-dev/fleamart/internal/domain"
)

// sessionTokenTTL is how long a session token stays valid after issue.
const sessionTokenTTL = 30 * time.Minute

const fallbackTokenChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SessionClaims is the payload carried by a session token. The token is
// deliberately unsigned (alg "none"): the encoding is reversible but carries
// no integrity guarantee, which callers must not rely on.
type SessionClaims struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the claims, or 0 if unset.
func (c *SessionClaims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// IsAdmin reports whether the claims carry the admin role.
func (c *SessionClaims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

// TokenService issues anti-forgery tokens and bearer session tokens.
type TokenService struct {
	audit   *AuditLog
	entropy io.Reader
	now     func() time.Time
}

// NewTokenService creates a TokenService backed by the OS entropy source.
func NewTokenService(audit *AuditLog) *TokenService {
	return &TokenService{audit: audit, entropy: rand.Reader, now: time.Now}
}

// IssueCSRFToken produces a 128-bit anti-forgery token from the strong
// entropy source. If that source fails it falls back to a pseudo-random
// 32-character alphanumeric token; the degraded condition is logged and
// audited because such tokens are guessable in principle.
func (s *TokenService) IssueCSRFToken(ctx context.Context) string {
	b := make([]byte, 16)
	if _, err := io.ReadFull(s.entropy, b); err != nil {
		slog.Warn("strong entropy source unavailable, issuing pseudo-random anti-forgery token", "error", err)
		if auditErr := s.audit.Append(ctx, "security_alert", map[string]any{
			"type": "csrf_fallback",
		}); auditErr != nil {
			slog.Error("record csrf fallback", "error", auditErr)
		}
		return s.fallbackToken()
	}
	return hex.EncodeToString(b)
}

func (s *TokenService) fallbackToken() string {
	out := make([]byte, 32)
	for i := range out {
		out[i] = fallbackTokenChars[mathrand.IntN(len(fallbackTokenChars))]
	}
	return string(out)
}

// IssueSessionToken builds the three-part session token for a user:
// a header asserting the (absent) algorithm, a reversible payload with the
// subject, display name, email, role, issue time and a 30-minute expiry,
// and an empty signature segment.
func (s *TokenService) IssueSessionToken(user *domain.User) (string, error) {
	now := s.now()
	claims := &SessionClaims{
		Name:  user.Username,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		return "", fmt.Errorf("encode session token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken parses a session token and validates its expiry.
// It returns domain.ErrTokenExpired for a structurally sound but expired
// token and domain.ErrTokenMalformed for everything else, so callers can
// decide whether to clear stored session state.
func (s *TokenService) VerifySessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{},
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodNone {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return jwt.UnsafeAllowNoneSignatureType, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodNone.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenMalformed
	}
	return claims, nil
}
