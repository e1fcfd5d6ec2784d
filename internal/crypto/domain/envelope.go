package domain

// Envelope holds the output of encrypting a single secret value.
//
// The four fields together are sufficient to recover the plaintext given the
// master key: the salt re-derives the per-secret key, the IV seeds the AEAD,
// and the authentication tag is re-verified on every decrypt so tampering with
// any field is detected.
type Envelope struct {
	// Ciphertext is the encrypted secret value without the authentication tag.
	Ciphertext []byte
	// IV is the 16-byte AES-GCM nonce, random per encryption.
	IV []byte
	// Salt is the 32-byte PBKDF2 salt binding the derived key to this envelope.
	Salt []byte
	// AuthTag is the 16-byte GCM authentication tag.
	AuthTag []byte
}

// Valid reports whether the envelope's fields have the expected shapes.
func (e *Envelope) Valid() bool {
	return e != nil &&
		len(e.IV) == IVSize &&
		len(e.Salt) == SaltSize &&
		len(e.AuthTag) == TagSize
}
