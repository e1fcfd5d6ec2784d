// Package usecase implements user account and session business logic:
// registration, authentication with lockout and rate limiting, session
// lifecycle, and administrative transitions.
package usecase

import (
	"context"
	"time"

	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
	userDomain "github.com/allisson/localvault/internal/user/domain"
)

// UserRepository defines the interface for user and session persistence.
type UserRepository interface {
	// LoadUsers reads every persisted user.
	LoadUsers(ctx context.Context) ([]*userDomain.User, error)
	// SaveUsers atomically replaces the users document.
	SaveUsers(ctx context.Context, users []*userDomain.User) error
	// LoadSessions reads every persisted session.
	LoadSessions(ctx context.Context) ([]*userDomain.Session, error)
	// SaveSessions atomically replaces the sessions document.
	SaveSessions(ctx context.Context, sessions []*userDomain.Session) error
}

// SecretStore is the subset of the secret store used for password hashes,
// which are stored as secrets named "user_password_{id}".
type SecretStore interface {
	Store(ctx context.Context, name string, value []byte, opts secretsUsecase.StoreOptions) (*secretsDomain.Secret, error)
	Get(ctx context.Context, name, userID string) ([]byte, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// PermissionResolver resolves the union permission set for a set of roles.
// Used to build the session's diagnostic snapshot.
type PermissionResolver interface {
	ResolveForRoles(ctx context.Context, roleIDs []string) ([]*rbacDomain.Permission, error)
}

// Options carries the tunable authentication and session parameters.
type Options struct {
	// SessionTTL is the session lifetime.
	SessionTTL time.Duration
	// SessionCap is the per-user concurrent session cap; oldest sessions by
	// last activity are evicted beyond it.
	SessionCap int
	// LockoutMaxAttempts is the consecutive failure count that triggers a lockout.
	LockoutMaxAttempts int
	// LockoutDuration is how long a lockout lasts.
	LockoutDuration time.Duration
	// RateLimitEnabled toggles per-IP login rate limiting.
	RateLimitEnabled bool
	// RateLimitPerSec is the sustained login attempt rate allowed per IP.
	RateLimitPerSec float64
	// RateLimitBurst is the burst size per IP.
	RateLimitBurst int
}

// CreateUserInput carries the fields for a new user account.
type CreateUserInput struct {
	Username string
	Password string
	Roles    []string
}

// AuthenticateInput carries a login attempt.
type AuthenticateInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// AuthenticateOutput is a successful login: the session plus the plain tokens,
// which are never persisted.
type AuthenticateOutput struct {
	User         *userDomain.User
	Session      *userDomain.Session
	Token        string
	RefreshToken string
}

// UserUseCase defines the interface for user and session business logic.
type UserUseCase interface {
	// Initialize loads persisted users and sessions into memory.
	Initialize(ctx context.Context) error

	// CreateUser registers an account with a unique username, hashing the
	// password with Argon2id and storing the hash in the secret store.
	CreateUser(ctx context.Context, input CreateUserInput) (*userDomain.User, error)

	// Authenticate runs a login attempt: rate limit, account state, lockout,
	// password verification, then session creation with eviction beyond the
	// per-user cap. Failures are generic to prevent username enumeration.
	Authenticate(ctx context.Context, input AuthenticateInput) (*AuthenticateOutput, error)

	// Refresh exchanges a valid refresh token for a new token pair and TTL.
	Refresh(ctx context.Context, refreshToken string) (*AuthenticateOutput, error)

	// RevokeSession removes a session, reporting whether it existed.
	RevokeSession(ctx context.Context, sessionID string) (bool, error)

	// GetUser returns a user by ID.
	GetUser(ctx context.Context, userID string) (*userDomain.User, error)

	// GetSession returns a session by ID.
	GetSession(ctx context.Context, sessionID string) (*userDomain.Session, error)

	// TouchSession updates a session's last-activity timestamp. Activity
	// tracking only; the expiry never slides.
	TouchSession(ctx context.Context, sessionID string) error

	// SetStatus applies an administrative status transition.
	SetStatus(ctx context.Context, userID string, status userDomain.Status) error

	// Unlock clears a lockout and resets the failure counter.
	Unlock(ctx context.Context, userID string) error
}
