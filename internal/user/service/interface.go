// Package service provides password hashing and session token generation.
// Passwords use Argon2id; session tokens are random 256-bit values stored only
// as SHA-256 hashes.
package service

// PasswordService defines the interface for password hashing and verification.
type PasswordService interface {
	// HashPassword hashes a plain text password using Argon2id.
	HashPassword(plainPassword string) (string, error)

	// ComparePassword performs a constant-time comparison between a plain
	// password and its hash.
	ComparePassword(plainPassword, hashedPassword string) bool
}

// TokenService defines the interface for session token generation and hashing.
type TokenService interface {
	// GenerateToken creates a cryptographically secure random token, returning
	// the plain token and its SHA-256 hash.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken hashes a plain token with SHA-256, hex-encoded.
	HashToken(plainToken string) string
}
