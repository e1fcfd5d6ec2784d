package domain

import (
	"crypto/rand"
	"sync"

	"github.com/allisson/localvault/internal/errors"
)

// MasterKey represents the vault's root symmetric key.
//
// The master key never encrypts secrets directly: per-secret encryption keys are
// derived from it with PBKDF2 and a per-secret salt. The raw key material lives
// only in process memory and is persisted by the master key repository either
// raw (dev mode), password-wrapped, or KMS-wrapped.
//
// Security considerations:
//   - Keys are exactly 32 bytes (256 bits)
//   - Keys are generated with crypto/rand
//   - Close zeroes the material when the key is replaced or the process shuts down
type MasterKey struct {
	mu  sync.RWMutex
	key []byte
}

// NewMasterKeyHolder returns an empty holder. Holders let long-lived components
// (the audit signer, the secret store) share one key identity whose material is
// filled at initialization and swapped atomically by rotation.
func NewMasterKeyHolder() *MasterKey {
	return &MasterKey{}
}

// NewMasterKey generates a fresh random 32-byte master key.
func NewMasterKey() (*MasterKey, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "failed to generate master key")
	}
	return &MasterKey{key: key}, nil
}

// MasterKeyFromBytes wraps existing key material. The material is copied, so the
// caller retains ownership of (and responsibility for zeroing) its slice.
func MasterKeyFromBytes(key []byte) (*MasterKey, error) {
	if len(key) != MasterKeySize {
		return nil, errors.Wrapf(ErrInvalidKeySize, "master key must be %d bytes, got %d", MasterKeySize, len(key))
	}
	cp := make([]byte, MasterKeySize)
	copy(cp, key)
	return &MasterKey{key: cp}, nil
}

// Bytes returns the raw key material. The returned slice aliases the internal
// buffer and must not be retained past the lifetime of the MasterKey.
func (m *MasterKey) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key
}

// Loaded reports whether the key holds usable material.
func (m *MasterKey) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.key) == MasterKeySize
}

// Replace swaps in new key material, zeroing the old. Readers holding the
// store's rotation lock never observe a half-swapped key.
func (m *MasterKey) Replace(key []byte) error {
	if len(key) != MasterKeySize {
		return errors.Wrapf(ErrInvalidKeySize, "master key must be %d bytes, got %d", MasterKeySize, len(key))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	Zero(m.key)
	cp := make([]byte, MasterKeySize)
	copy(cp, key)
	m.key = cp
	return nil
}

// Close zeroes the key material and renders the key unusable.
func (m *MasterKey) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	Zero(m.key)
	m.key = nil
}
