package domain

import (
	"github.com/allisson/localvault/internal/errors"
)

// User and session errors.
var (
	// ErrUserNotFound indicates a user with the specified ID or username was
	// not found.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrInvalidCredentials is the generic authentication failure. It covers
	// unknown usernames, inactive accounts, and wrong passwords alike so
	// responses cannot be used for username enumeration.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrRateLimited indicates the per-IP login rate limit was exceeded.
	ErrRateLimited = errors.Wrap(errors.ErrUnauthorized, "too many login attempts")

	// ErrSessionNotFound indicates a session with the specified ID or token
	// was not found.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")
)
