package domain

import (
	"github.com/allisson/localvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// Master keys must be exactly 32 bytes (256 bits) for AES-256-GCM.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong master key used
	//   - Ciphertext or authentication tag has been tampered with
	//   - Corrupted envelope fields (salt, IV)
	//
	// For security reasons, the specific cause is not disclosed to prevent
	// information leakage that could aid attackers. Retrying with the same
	// key cannot succeed, so callers must never auto-retry this error.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidEnvelope indicates an envelope has missing or malformed fields.
	ErrInvalidEnvelope = errors.Wrap(errors.ErrInvalidInput, "invalid envelope")

	// ErrMasterKeyNotLoaded indicates an operation required the master key
	// before the store was initialized.
	ErrMasterKeyNotLoaded = errors.New("master key not loaded")

	// ErrMasterKeyUnavailable indicates the persisted master key could not be
	// loaded or unwrapped. This is fatal at initialization time.
	ErrMasterKeyUnavailable = errors.New("master key unavailable")
)
