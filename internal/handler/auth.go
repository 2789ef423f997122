package handler

import (
	"net/http"

	"github.com/hanbit-dev/fleamart/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	sessions *service.SessionManager
	users    *service.UserStore
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *service.SessionManager, users *service.UserStore) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users}
}

// HandleCSRFToken returns the current anti-forgery token. Clients present it
// in the X-CSRF-Token header on every state-mutating request.
// GET /api/auth/csrf
// Response: {"csrfToken":"..."}
func (h *AuthHandler) HandleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.sessions.CSRFToken(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

// HandleLogin processes a JSON login request.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."}
// Response: {"user": {...}, "csrfToken": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.sessions.Login(r.Context(), req.Email, req.Password, r.Header.Get(csrfHeader))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// The token rotated during login; hand the fresh one back so the client
	// does not need a second round trip.
	token, err := h.sessions.CSRFToken(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      toUserDTO(user),
		"csrfToken": token,
	})
}

// HandleSignup processes a JSON registration request. A successful signup
// logs the new account straight in.
// POST /api/auth/signup
// Request:  {"username":"...","email":"...","password":"..."}
// Response: {"user": {...}, "csrfToken": "..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.sessions.Signup(r.Context(), req.Username, req.Email, req.Password, r.Header.Get(csrfHeader))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.sessions.CSRFToken(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":      toUserDTO(user),
		"csrfToken": token,
	})
}

// HandleLogout ends the current session.
// POST /api/auth/logout
// Response: 204 No Content
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the currently authenticated user.
// GET /api/auth/me
// Response: {"user": {...}} or 401
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.UserID())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleTouch records user activity, pushing the idle timeout forward.
// POST /api/session/touch
// Response: 204 No Content
func (h *AuthHandler) HandleTouch(w http.ResponseWriter, r *http.Request) {
	h.sessions.Touch(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
