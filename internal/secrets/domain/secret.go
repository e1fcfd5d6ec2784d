// Package domain defines the core domain models for secret management.
//
// A secret's plaintext exists only transiently in memory and is owned exclusively
// by the secret store; everything persisted is ciphertext plus envelope fields.
package domain

import (
	"time"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
)

// KeyDerivationInfo records how a secret's encryption key was derived, so the
// store can keep decrypting old secrets after the configured iteration count
// changes.
type KeyDerivationInfo struct {
	Function   cryptoDomain.KeyDerivation `json:"function"`
	Iterations int                        `json:"iterations"`
}

// Metadata carries non-sensitive bookkeeping for a secret. It is returned by
// list operations and never includes the value.
type Metadata struct {
	Description  string     `json:"description,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
	AccessCount  uint64     `json:"accessCount"`
}

// Secret represents one encrypted secret with its envelope and metadata.
// The on-disk JSON shape is exactly this struct minus Plaintext.
type Secret struct {
	// Name is the unique identifier, restricted to [a-zA-Z0-9_-]{1,100} so it
	// doubles as the file name on disk.
	Name string `json:"name"`
	// Ciphertext is the encrypted value without the authentication tag.
	Ciphertext []byte `json:"ciphertext"`
	// IV is the AES-GCM nonce used for this encryption.
	IV []byte `json:"iv"`
	// Salt seeds the PBKDF2 derivation of this secret's key.
	Salt []byte `json:"salt"`
	// AuthTag is the GCM authentication tag, re-verified on every decrypt.
	AuthTag []byte `json:"authTag"`
	// Algorithm names the AEAD cipher protecting the value.
	Algorithm cryptoDomain.Algorithm `json:"algorithm"`
	// KeyDerivation records the KDF parameters for this secret.
	KeyDerivation KeyDerivationInfo `json:"keyDerivation"`
	// Metadata is the non-sensitive bookkeeping for this secret.
	Metadata Metadata `json:"metadata"`
	// Plaintext holds the decrypted value in memory only; must be zeroed after use.
	Plaintext []byte `json:"-"`
}

// Envelope views the secret's cryptographic fields as an envelope for decryption.
func (s *Secret) Envelope() *cryptoDomain.Envelope {
	return &cryptoDomain.Envelope{
		Ciphertext: s.Ciphertext,
		IV:         s.IV,
		Salt:       s.Salt,
		AuthTag:    s.AuthTag,
	}
}

// ApplyEnvelope replaces the secret's cryptographic fields from a fresh envelope.
func (s *Secret) ApplyEnvelope(env *cryptoDomain.Envelope) {
	s.Ciphertext = env.Ciphertext
	s.IV = env.IV
	s.Salt = env.Salt
	s.AuthTag = env.AuthTag
}

// Expired reports whether the secret is past its expiry at the given instant.
// Secrets without ExpiresAt never expire.
func (s *Secret) Expired(now time.Time) bool {
	return s.Metadata.ExpiresAt != nil && now.After(*s.Metadata.ExpiresAt)
}

// HasTag reports whether the secret carries the given metadata tag.
func (s *Secret) HasTag(tag string) bool {
	for _, t := range s.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MetadataOnly returns a copy of the secret with all cryptographic material and
// plaintext stripped, safe for listing.
func (s *Secret) MetadataOnly() *Secret {
	return &Secret{
		Name:          s.Name,
		Algorithm:     s.Algorithm,
		KeyDerivation: s.KeyDerivation,
		Metadata:      s.Metadata,
	}
}
