// Package usecase implements business logic orchestration for secret management.
// It coordinates the cryptographic envelope, filesystem persistence, master key
// lifecycle, and audit logging behind a single SecretUseCase interface.
package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
)

// SecretRepository defines the interface for encrypted secret persistence.
type SecretRepository interface {
	// EnsureDir creates the store directory if needed and verifies writability.
	EnsureDir() error
	// Save persists one secret atomically with restrictive permissions.
	Save(ctx context.Context, secret *secretsDomain.Secret) error
	// Delete removes a secret, reporting whether it existed.
	Delete(ctx context.Context, name string) (bool, error)
	// LoadAll reads every persisted secret, skipping corrupted files.
	LoadAll(ctx context.Context) ([]*secretsDomain.Secret, error)
}

// MasterKeyRepository defines the interface for master key persistence.
type MasterKeyRepository interface {
	// Exists reports whether a persisted master key is present.
	Exists() bool
	// Load reads and unwraps the persisted master key.
	Load(ctx context.Context) (*cryptoDomain.MasterKey, error)
	// Save wraps and persists the master key.
	Save(ctx context.Context, mk *cryptoDomain.MasterKey) error
	// Archive moves the current key file to a timestamped backup, returning its path.
	Archive(now time.Time) (string, error)
	// Restore moves an archived key file back into place (rotation rollback).
	Restore(backupPath string) error
	// SetPassword changes the wrapping password for subsequent saves and
	// returns the previous one.
	SetPassword(password string) string
}

// StoreOptions carries optional metadata for Store and Update.
type StoreOptions struct {
	Description string
	Tags        []string
	ExpiresAt   *time.Time
}

// SecretUseCase defines the interface for secret store business logic.
//
// All operations except Initialize require a successful Initialize first.
// Writes to the same secret name are serialized; RotateMasterKey excludes all
// other operations for its duration.
type SecretUseCase interface {
	// Initialize loads or generates the master key and loads all persisted
	// secrets. Fails fatally if the store directory is unwritable or the
	// master key cannot be loaded.
	Initialize(ctx context.Context) error

	// Store validates the name, encrypts the value, and persists it,
	// overwriting any existing secret of the same name.
	Store(ctx context.Context, name string, value []byte, opts StoreOptions) (*secretsDomain.Secret, error)

	// Get returns the plaintext, or nil when the secret is absent or past its
	// expiry. Every call appends an access audit entry and a hit bumps the
	// access counters.
	//
	// Security Note: the caller owns the returned buffer and must zero it
	// after use via cryptoDomain.Zero.
	Get(ctx context.Context, name, userID string) ([]byte, error)

	// Update re-encrypts an existing secret with a fresh IV and salt,
	// preserving its creation timestamp.
	Update(ctx context.Context, name string, value []byte, opts StoreOptions) (*secretsDomain.Secret, error)

	// Delete removes a secret, reporting whether it existed.
	Delete(ctx context.Context, name string) (bool, error)

	// List returns metadata-only copies, never values. With tags given, only
	// secrets carrying every requested tag are returned.
	List(ctx context.Context, tags []string) ([]*secretsDomain.Secret, error)

	// RotateMasterKey generates a new master key, re-encrypts every secret
	// under it, archives the prior key file, and swaps the active key only
	// after every secret has been re-encrypted. Any mid-rotation failure
	// aborts the whole operation with the previous key authoritative.
	// An optional new wrapping password takes effect with the new key.
	RotateMasterKey(ctx context.Context, newPassword string) error

	// Export serializes the encrypted store (ciphertext only) for backup.
	Export(ctx context.Context) (*secretsDomain.ExportBlob, error)

	// Import loads secrets from an export blob after validating its version
	// tag, overwriting name collisions. Returns the number imported.
	Import(ctx context.Context, blob *secretsDomain.ExportBlob) (int, error)
}
