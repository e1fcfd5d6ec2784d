package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/allisson/localvault/internal/errors"
)

// Signer produces tamper-evident signatures for audit entries using
// HKDF-SHA256 for key derivation and HMAC-SHA256 for the signature itself.
type Signer struct{}

// NewSigner creates a new audit entry signer.
func NewSigner() *Signer {
	return &Signer{}
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the
// master key. Separates encryption key usage from signing key usage.
// Info parameter: "audit-log-signing-v1" (versioned for future algorithm changes).
func (s *Signer) deriveSigningKey(masterKey []byte) ([]byte, error) {
	info := []byte("audit-log-signing-v1")
	kdf := hkdf.New(sha256.New, masterKey, nil, info)

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, signingKey); err != nil {
		return nil, errors.Wrap(err, "failed to derive signing key")
	}
	return signingKey, nil
}

// canonicalAccess converts an access entry to canonical bytes for signing.
// Uses length-prefixed encoding for variable-length fields to prevent ambiguity.
func canonicalAccess(entry *AccessEntry) []byte {
	buf := make([]byte, 0, 256)
	buf = appendLengthPrefixed(buf, []byte(entry.Secret))
	buf = appendLengthPrefixed(buf, []byte(entry.User))
	buf = appendBool(buf, entry.Success)
	buf = appendTimestamp(buf, entry.Timestamp.UnixNano())
	return buf
}

// canonicalDecision converts a decision entry to canonical bytes for signing.
func canonicalDecision(entry *DecisionEntry) []byte {
	buf := make([]byte, 0, 512)
	buf = appendLengthPrefixed(buf, []byte(entry.UserID))
	buf = appendLengthPrefixed(buf, []byte(entry.SessionID))
	buf = appendLengthPrefixed(buf, []byte(entry.Resource))
	buf = appendLengthPrefixed(buf, []byte(entry.Action))
	buf = appendBool(buf, entry.Granted)
	buf = appendLengthPrefixed(buf, []byte(entry.Reason))
	buf = appendTimestamp(buf, entry.Timestamp.UnixNano())
	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendTimestamp(buf []byte, nanos int64) []byte {
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(nanos))
	return append(buf, ts...)
}

// sign computes the HMAC-SHA256 signature over canonical bytes.
func (s *Signer) sign(masterKey, canonical []byte) ([]byte, error) {
	signingKey, err := s.deriveSigningKey(masterKey)
	if err != nil {
		return nil, err
	}
	defer zero(signingKey)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// SignAccess generates the HMAC-SHA256 signature for an access entry.
func (s *Signer) SignAccess(masterKey []byte, entry *AccessEntry) ([]byte, error) {
	return s.sign(masterKey, canonicalAccess(entry))
}

// SignDecision generates the HMAC-SHA256 signature for a decision entry.
func (s *Signer) SignDecision(masterKey []byte, entry *DecisionEntry) ([]byte, error) {
	return s.sign(masterKey, canonicalDecision(entry))
}

// VerifyAccess checks an access entry's signature.
// Returns nil if valid, ErrSignatureInvalid if tampered or invalid.
func (s *Signer) VerifyAccess(masterKey []byte, entry *AccessEntry) error {
	expected, err := s.SignAccess(masterKey, entry)
	if err != nil {
		return err
	}
	if !hmac.Equal(entry.Signature, expected) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyDecision checks a decision entry's signature.
// Returns nil if valid, ErrSignatureInvalid if tampered or invalid.
func (s *Signer) VerifyDecision(masterKey []byte, entry *DecisionEntry) error {
	expected, err := s.SignDecision(masterKey, entry)
	if err != nil {
		return err
	}
	if !hmac.Equal(entry.Signature, expected) {
		return ErrSignatureInvalid
	}
	return nil
}

// zero overwrites sensitive data in memory with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
