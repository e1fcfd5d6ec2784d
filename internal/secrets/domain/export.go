package domain

import (
	"time"

	"github.com/allisson/localvault/internal/errors"
)

// ExportVersion is the current export blob format version.
const ExportVersion = "1.0"

// ExportBlob is the portable backup format for the encrypted store.
//
// It carries ciphertext only and is decryptable solely by an environment holding
// the same master key: an encrypted backup, not a cross-environment transfer
// format.
type ExportBlob struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Secrets   []*Secret `json:"secrets"`
}

// Validate checks the blob's version tag before import.
func (b *ExportBlob) Validate() error {
	if b == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nil export blob")
	}
	if b.Version != ExportVersion {
		return errors.Wrapf(errors.ErrInvalidInput, "unsupported export version %q", b.Version)
	}
	return nil
}
