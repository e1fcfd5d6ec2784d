// Package service provides cryptographic services for the secret store.
// Implements the AES-256-GCM envelope with per-secret PBKDF2 key derivation.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
)

// Envelope defines the interface for encrypting and decrypting single secret values.
type Envelope interface {
	// Encrypt encrypts plaintext under a key derived from the master key and a
	// fresh random salt, returning a complete envelope.
	Encrypt(plaintext []byte, masterKey *cryptoDomain.MasterKey) (*cryptoDomain.Envelope, error)

	// Decrypt re-derives the per-secret key from the envelope's salt and returns
	// the plaintext. Fails with ErrDecryptionFailed on tag mismatch (tampered
	// data or wrong key).
	Decrypt(envelope *cryptoDomain.Envelope, masterKey *cryptoDomain.MasterKey) ([]byte, error)

	// Iterations reports the effective PBKDF2 iteration count in use.
	Iterations() int
}

// KMSKeeper abstracts the subset of gocloud.dev/secrets.Keeper used for
// master key wrapping, enabling test doubles.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens KMS keepers for master key wrapping.
type KMSService interface {
	// OpenKeeper opens a keeper for the configured KMS provider.
	// Returns an error if the KMS key URI is invalid or the connection fails.
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}
