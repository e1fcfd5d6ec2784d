// Package repository provides file-based persistence for the vault master key.
//
// The master key file lives in the store directory as "master.key" with mode 0600
// and is persisted in one of three formats:
//
//   - raw 32-byte hex (dev mode, no password and no KMS configured)
//   - password-wrapped "encryptedKey:salt:iv" hex triple, where the wrapping key
//     is derived from the password via PBKDF2-HMAC-SHA256
//   - KMS-wrapped "kms:v1:<base64>" blob sealed by a gocloud.dev secrets keeper
package repository

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	cryptoService "github.com/allisson/localvault/internal/crypto/service"
	"github.com/allisson/localvault/internal/errors"
)

const (
	// MasterKeyFileName is the master key file name inside the store directory.
	MasterKeyFileName = "master.key"

	// kmsPrefix marks a KMS-wrapped master key file.
	kmsPrefix = "kms:v1:"

	// filePerm restricts key material files to the owner.
	filePerm os.FileMode = 0o600
)

// MasterKeyFile persists the vault master key to a single restricted file.
type MasterKeyFile struct {
	path       string
	password   string
	keeper     cryptoService.KMSKeeper
	iterations int
}

// NewMasterKeyFile creates a master key repository rooted at dir.
//
// Exactly one protection mode applies, chosen by the arguments: a non-nil keeper
// wins over a non-empty password, and with neither the key is stored raw (dev mode).
func NewMasterKeyFile(dir, password string, keeper cryptoService.KMSKeeper, iterations int) *MasterKeyFile {
	if iterations < cryptoDomain.MinKDFIterations {
		iterations = cryptoDomain.MinKDFIterations
	}
	return &MasterKeyFile{
		path:       filepath.Join(dir, MasterKeyFileName),
		password:   password,
		keeper:     keeper,
		iterations: iterations,
	}
}

// Path returns the master key file location.
func (r *MasterKeyFile) Path() string {
	return r.path
}

// Exists reports whether a master key file is present.
func (r *MasterKeyFile) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// Load reads and unwraps the persisted master key.
// A missing, unreadable, or un-unwrappable file yields ErrMasterKeyUnavailable.
func (r *MasterKeyFile) Load(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.Wrapf(cryptoDomain.ErrMasterKeyUnavailable, "read %s: %v", r.path, err)
	}

	content := strings.TrimSpace(string(data))

	var raw []byte
	switch {
	case strings.HasPrefix(content, kmsPrefix):
		raw, err = r.unwrapKMS(ctx, strings.TrimPrefix(content, kmsPrefix))
	case strings.Contains(content, ":"):
		raw, err = r.unwrapPassword(content)
	default:
		raw, err = hex.DecodeString(content)
		if err != nil {
			err = errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "malformed raw key file")
		}
	}
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(raw)

	mk, err := cryptoDomain.MasterKeyFromBytes(raw)
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, err.Error())
	}
	return mk, nil
}

// Save wraps and persists the master key with mode 0600 via an atomic rename.
func (r *MasterKeyFile) Save(ctx context.Context, mk *cryptoDomain.MasterKey) error {
	if mk == nil || !mk.Loaded() {
		return cryptoDomain.ErrMasterKeyNotLoaded
	}

	var content string
	var err error
	switch {
	case r.keeper != nil:
		content, err = r.wrapKMS(ctx, mk.Bytes())
	case r.password != "":
		content, err = r.wrapPassword(mk.Bytes())
	default:
		content = hex.EncodeToString(mk.Bytes())
	}
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), filePerm); err != nil {
		return errors.Wrap(err, "failed to write master key file")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to commit master key file")
	}
	return nil
}

// Archive renames the current master key file to a timestamped backup alongside
// it and returns the backup path. Used by rotation to retain the prior key.
func (r *MasterKeyFile) Archive(now time.Time) (string, error) {
	backup := fmt.Sprintf("%s.bak-%s", r.path, now.UTC().Format("20060102T150405"))
	if err := os.Rename(r.path, backup); err != nil {
		return "", errors.Wrap(err, "failed to archive master key file")
	}
	return backup, nil
}

// Restore moves an archived key file back into place, overwriting any current
// file. Used to roll back an aborted rotation.
func (r *MasterKeyFile) Restore(backupPath string) error {
	if err := os.Rename(backupPath, r.path); err != nil {
		return errors.Wrap(err, "failed to restore master key file")
	}
	return nil
}

// SetPassword changes the wrapping password used for subsequent Save calls and
// returns the previous one, so callers can undo the change on rollback.
func (r *MasterKeyFile) SetPassword(password string) string {
	prev := r.password
	r.password = password
	return prev
}

// wrapPassword seals the key under a password-derived wrapping key and encodes
// the result as the "encryptedKey:salt:iv" hex triple. The encrypted key field
// carries the GCM tag appended to the ciphertext.
func (r *MasterKeyFile) wrapPassword(key []byte) (string, error) {
	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "failed to generate wrap salt")
	}
	iv := make([]byte, cryptoDomain.IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", errors.Wrap(err, "failed to generate wrap iv")
	}

	aead, err := r.wrapAEAD(salt)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, key, nil)
	return fmt.Sprintf(
		"%s:%s:%s",
		hex.EncodeToString(sealed),
		hex.EncodeToString(salt),
		hex.EncodeToString(iv),
	), nil
}

// unwrapPassword reverses wrapPassword. A wrong password surfaces uniformly as
// ErrMasterKeyUnavailable without distinguishing it from corruption.
func (r *MasterKeyFile) unwrapPassword(content string) ([]byte, error) {
	if r.password == "" {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "master key file is password-wrapped but no password configured")
	}

	parts := strings.Split(content, ":")
	if len(parts) != 3 {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "malformed wrapped key file")
	}

	sealed, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "malformed wrapped key file")
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) != cryptoDomain.SaltSize {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "malformed wrapped key file")
	}
	iv, err := hex.DecodeString(parts[2])
	if err != nil || len(iv) != cryptoDomain.IVSize {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "malformed wrapped key file")
	}

	aead, err := r.wrapAEAD(salt)
	if err != nil {
		return nil, err
	}

	key, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "failed to unwrap master key")
	}
	return key, nil
}

// wrapAEAD builds the password-derived AES-256-GCM cipher for key wrapping.
func (r *MasterKeyFile) wrapAEAD(salt []byte) (cipher.AEAD, error) {
	wrapKey := pbkdf2.Key([]byte(r.password), salt, r.iterations, cryptoDomain.MasterKeySize, sha256.New)
	defer cryptoDomain.Zero(wrapKey)

	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wrap cipher")
	}
	return cipher.NewGCMWithNonceSize(block, cryptoDomain.IVSize)
}

// wrapKMS seals the key through the configured KMS keeper.
func (r *MasterKeyFile) wrapKMS(ctx context.Context, key []byte) (string, error) {
	sealed, err := r.keeper.Encrypt(ctx, key)
	if err != nil {
		return "", errors.Wrap(err, "failed to KMS-wrap master key")
	}
	return kmsPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// unwrapKMS reverses wrapKMS.
func (r *MasterKeyFile) unwrapKMS(ctx context.Context, encoded string) ([]byte, error) {
	if r.keeper == nil {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "master key file is KMS-wrapped but no KMS configured")
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "malformed KMS-wrapped key file")
	}
	key, err := r.keeper.Decrypt(ctx, sealed)
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "failed to KMS-unwrap master key")
	}
	return key, nil
}
