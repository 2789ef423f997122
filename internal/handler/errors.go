package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hanbit-dev/fleamart/internal/domain"
)

// writeServiceError maps a service-layer error onto an HTTP response.
// Validation failures carry their message through verbatim; security
// rejections deliberately do not, so an attacker learns nothing about
// which pattern fired.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrTermTooShort):
		writeError(w, http.StatusUnprocessableEntity, "Search term must be at least 2 characters.")
	case errors.Is(err, domain.ErrSecurityRejected):
		writeError(w, http.StatusForbidden, "Request rejected.")
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "An account with that email already exists.")
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "Your session has expired. Please log in again.")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Not authorized.")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many attempts. Please wait and try again.")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	default:
		slog.Error("unexpected service error", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	}
}
