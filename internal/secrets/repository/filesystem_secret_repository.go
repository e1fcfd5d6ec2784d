// Package repository provides filesystem persistence for encrypted secrets.
//
// Each secret lives in its own "{name}.json" file under the store directory with
// mode 0600. Writes go through a temp file plus rename so a crashed write never
// leaves a half-written secret behind.
package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/allisson/localvault/internal/errors"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
)

const (
	secretFileSuffix = ".json"

	filePerm os.FileMode = 0o600
	dirPerm  os.FileMode = 0o700
)

// FilesystemSecretRepository stores one JSON file per secret.
type FilesystemSecretRepository struct {
	dir    string
	logger *slog.Logger
}

// NewFilesystemSecretRepository creates a repository rooted at dir.
func NewFilesystemSecretRepository(dir string, logger *slog.Logger) *FilesystemSecretRepository {
	return &FilesystemSecretRepository{dir: dir, logger: logger}
}

// Dir returns the store directory.
func (r *FilesystemSecretRepository) Dir() string {
	return r.dir
}

// EnsureDir creates the store directory if needed and verifies it is writable.
// An unwritable directory is fatal for the store.
func (r *FilesystemSecretRepository) EnsureDir() error {
	if err := os.MkdirAll(r.dir, dirPerm); err != nil {
		return errors.Wrap(secretsDomain.ErrStoreUnwritable, err.Error())
	}

	probe, err := os.CreateTemp(r.dir, ".write-probe-*")
	if err != nil {
		return errors.Wrap(secretsDomain.ErrStoreUnwritable, err.Error())
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// path maps a secret name to its file location. Names are validated upstream to
// a filename-safe charset, so no escaping is needed.
func (r *FilesystemSecretRepository) path(name string) string {
	return filepath.Join(r.dir, name+secretFileSuffix)
}

// Save persists the secret atomically with mode 0600.
func (r *FilesystemSecretRepository) Save(_ context.Context, secret *secretsDomain.Secret) error {
	data, err := json.MarshalIndent(secret, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal secret")
	}

	target := r.path(secret.Name)
	tmp, err := os.CreateTemp(r.dir, "."+secret.Name+"-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp secret file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "failed to write secret file")
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "failed to chmod secret file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "failed to close secret file")
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "failed to commit secret file")
	}
	return nil
}

// Delete removes a secret file. Reports whether it existed.
func (r *FilesystemSecretRepository) Delete(_ context.Context, name string) (bool, error) {
	err := os.Remove(r.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to delete secret file")
	}
	return true, nil
}

// LoadAll reads every persisted secret from the store directory.
//
// A corrupted secret file is logged and skipped rather than aborting the whole
// load: one damaged entry must not take the store down.
func (r *FilesystemSecretRepository) LoadAll(_ context.Context) ([]*secretsDomain.Secret, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read store directory")
	}

	var secrets []*secretsDomain.Secret
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), secretFileSuffix) {
			continue
		}
		// Skip temp files from interrupted writes.
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("skipping unreadable secret file",
				slog.String("file", entry.Name()),
				slog.Any("error", err),
			)
			continue
		}

		var secret secretsDomain.Secret
		if err := json.Unmarshal(data, &secret); err != nil {
			r.logger.Warn("skipping corrupted secret file",
				slog.String("file", entry.Name()),
				slog.Any("error", err),
			)
			continue
		}
		if secret.Name == "" || secret.Name+secretFileSuffix != entry.Name() {
			r.logger.Warn("skipping secret file with mismatched name",
				slog.String("file", entry.Name()),
				slog.String("name", secret.Name),
			)
			continue
		}

		secrets = append(secrets, &secret)
	}

	return secrets, nil
}
