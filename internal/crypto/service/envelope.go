package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	"github.com/allisson/localvault/internal/errors"
)

// envelope implements the Envelope interface using AES-256-GCM with a per-secret
// key derived from the master key via PBKDF2-HMAC-SHA256.
//
// The derivation is deliberately slow: an attacker holding a single secret file
// and guessing master keys pays the full iteration cost per guess. The salt is
// random per encryption, so each secret's effective key is unique even when the
// same value is stored twice.
//
// Thread safety: the service is stateless and safe for concurrent use.
type envelope struct {
	iterations int
}

// NewEnvelope creates an Envelope service with the given PBKDF2 iteration count.
// Counts below the domain floor are raised to it.
func NewEnvelope(iterations int) Envelope {
	if iterations < cryptoDomain.MinKDFIterations {
		iterations = cryptoDomain.MinKDFIterations
	}
	return &envelope{iterations: iterations}
}

// Iterations reports the effective PBKDF2 iteration count in use.
func (e *envelope) Iterations() int {
	return e.iterations
}

// deriveKey stretches the master key into a 32-byte AES key bound to salt.
func (e *envelope) deriveKey(masterKey, salt []byte) []byte {
	return pbkdf2.Key(masterKey, salt, e.iterations, cryptoDomain.MasterKeySize, sha256.New)
}

// newAEAD builds an AES-256-GCM cipher with the envelope's 16-byte nonce size.
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AES cipher")
	}
	aead, err := cipher.NewGCMWithNonceSize(block, cryptoDomain.IVSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCM")
	}
	return aead, nil
}

// Encrypt encrypts plaintext under a key derived from the master key and a fresh
// random 32-byte salt, using a fresh random 16-byte IV. The GCM authentication
// tag is split off the sealed output and stored separately in the envelope.
func (e *envelope) Encrypt(
	plaintext []byte,
	masterKey *cryptoDomain.MasterKey,
) (*cryptoDomain.Envelope, error) {
	if masterKey == nil || !masterKey.Loaded() {
		return nil, cryptoDomain.ErrMasterKeyNotLoaded
	}

	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	iv := make([]byte, cryptoDomain.IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate iv")
	}

	key := e.deriveKey(masterKey.Bytes(), salt)
	defer cryptoDomain.Zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)

	// Seal appends the 16-byte tag to the ciphertext; keep them apart so the
	// persisted format matches {ciphertext, iv, salt, authTag}.
	tagStart := len(sealed) - cryptoDomain.TagSize
	ciphertext := make([]byte, tagStart)
	copy(ciphertext, sealed[:tagStart])
	authTag := make([]byte, cryptoDomain.TagSize)
	copy(authTag, sealed[tagStart:])

	return &cryptoDomain.Envelope{
		Ciphertext: ciphertext,
		IV:         iv,
		Salt:       salt,
		AuthTag:    authTag,
	}, nil
}

// Decrypt re-derives the per-secret key from the envelope's salt, re-assembles
// the sealed message, and opens it. Any tag mismatch (tampered ciphertext or
// wrong master key) surfaces uniformly as ErrDecryptionFailed.
func (e *envelope) Decrypt(
	env *cryptoDomain.Envelope,
	masterKey *cryptoDomain.MasterKey,
) ([]byte, error) {
	if masterKey == nil || !masterKey.Loaded() {
		return nil, cryptoDomain.ErrMasterKeyNotLoaded
	}
	if !env.Valid() {
		return nil, cryptoDomain.ErrInvalidEnvelope
	}

	key := e.deriveKey(masterKey.Bytes(), env.Salt)
	defer cryptoDomain.Zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+cryptoDomain.TagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := aead.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if plaintext == nil {
		// Open returns a nil slice for empty plaintext; keep the round trip
		// byte-exact so callers get back exactly what they stored.
		plaintext = []byte{}
	}

	return plaintext, nil
}
