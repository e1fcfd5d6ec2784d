// Package domain defines the core cryptographic domain models for the secret store.
//
// Each secret is protected by AES-256-GCM under a key derived from the vault master
// key via PBKDF2-HMAC-SHA256 seeded with a per-secret random salt. Binding the
// effective key to the salt means no two secrets share an encryption key, and
// rotating the master key only requires re-deriving per-secret keys.
package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// The supported algorithm provides Authenticated Encryption with Associated Data
// (AEAD), ensuring both confidentiality and authenticity of encrypted data.
type Algorithm string

// KeyDerivation represents the key derivation function binding a secret's
// encryption key to its per-secret salt.
type KeyDerivation string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// Key features:
	//   - 256-bit key size
	//   - 16-byte IV (random per encryption)
	//   - 16-byte authentication tag, stored separately from the ciphertext
	//   - Hardware acceleration on modern CPUs
	AESGCM Algorithm = "aes-256-gcm"

	// PBKDF2SHA256 represents PBKDF2-HMAC-SHA256 key derivation.
	//
	// The iteration count is deliberately high so that brute forcing the master
	// key through a captured secret file stays expensive.
	PBKDF2SHA256 KeyDerivation = "pbkdf2-sha256"
)

const (
	// MasterKeySize is the required master key length in bytes (256 bits).
	MasterKeySize = 32

	// SaltSize is the per-secret random salt length in bytes.
	SaltSize = 32

	// IVSize is the AES-GCM nonce length in bytes used by the envelope.
	IVSize = 16

	// TagSize is the AES-GCM authentication tag length in bytes.
	TagSize = 16

	// MinKDFIterations is the lowest permitted PBKDF2 iteration count.
	// Configured values below this floor are raised to it.
	MinKDFIterations = 100000
)
