package handler

import (
	"context"
	"net/http"

	"github.com/hanbit-dev/fleamart/internal/service"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// csrfHeader is where state-mutating requests present the anti-forgery token.
const csrfHeader = "X-CSRF-Token"

// ClaimsFromContext extracts the authenticated session claims from the
// request context. Returns nil if the request is anonymous.
func ClaimsFromContext(ctx context.Context) *service.SessionClaims {
	claims, _ := ctx.Value(claimsContextKey).(*service.SessionClaims)
	return claims
}

// RequireAuth is middleware that protects routes requiring a live session.
// It resolves the stored session token, injects the claims into the request
// context, and counts the request as activity toward the idle timeout.
// Returns 401 for anonymous or expired sessions.
func RequireAuth(sessions *service.SessionManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := sessions.CurrentClaims(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		sessions.Touch(r.Context())

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin layers an admin-role check on top of RequireAuth. Returns 403
// for authenticated non-admins.
func RequireAdmin(sessions *service.SessionManager, next http.Handler) http.Handler {
	return RequireAuth(sessions, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || !claims.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireCSRF is middleware for state-mutating routes whose service calls do
// not take the anti-forgery token themselves. The presented header must match
// the stored token.
func RequireCSRF(sessions *service.SessionManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.RequireCSRF(r.Context(), r.Header.Get(csrfHeader)); err != nil {
			writeServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
