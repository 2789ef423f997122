package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSecurityRejected = errors.New("security check rejected")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrRateLimited      = errors.New("too many attempts")
	ErrTermTooShort     = errors.New("search term too short")
)
