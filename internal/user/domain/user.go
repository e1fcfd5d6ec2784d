// Package domain defines user accounts and authentication sessions.
package domain

import "time"

// Status is the administrative state of a user account.
type Status string

// User account statuses.
const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is an account that can authenticate and hold roles. The password hash
// is not stored here; it lives in the secret store under a per-user name.
//
// Two independent state axes: Status is administrative (active, inactive,
// suspended) while the lockout is automatic, driven by consecutive failed
// logins, and clears on expiry or a successful authentication.
type User struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Roles               []string   `json:"roles,omitempty"`
	Status              Status     `json:"status"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
	LockedUntil         *time.Time `json:"lockedUntil,omitempty"`
	LastLogin           *time.Time `json:"lastLogin,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Locked reports whether an unexpired lockout is in force.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Active reports whether the account may authenticate at all.
func (u *User) Active() bool {
	return u.Status == StatusActive
}

// PasswordSecretName is the secret store entry holding this user's password
// hash.
func (u *User) PasswordSecretName() string {
	return "user_password_" + u.ID
}

// Session is an authenticated session. Only SHA-256 hashes of the tokens are
// stored; the plain tokens exist solely in the authenticate response.
//
// Permissions is a point-in-time resolution snapshot kept for diagnostics.
// Authorization never trusts it and always re-resolves from the live role
// graph.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	TokenHash        string    `json:"tokenHash"`
	RefreshTokenHash string    `json:"refreshTokenHash"`
	ExpiresAt        time.Time `json:"expiresAt"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActivity     time.Time `json:"lastActivity"`
	IPAddress        string    `json:"ipAddress,omitempty"`
	UserAgent        string    `json:"userAgent,omitempty"`
	Permissions      []string  `json:"permissions,omitempty"`
	Roles            []string  `json:"roles,omitempty"`
}

// Expired reports whether the session's lifetime has passed. Expiry is checked
// lazily at use time; there is no background sweep.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
