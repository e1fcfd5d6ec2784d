// Package repository provides filesystem persistence for users and sessions.
// Each collection lives in one JSON document in the store directory, written
// atomically with mode 0600.
package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/allisson/localvault/internal/errors"
	userDomain "github.com/allisson/localvault/internal/user/domain"
)

const (
	// UsersFileName holds every user account.
	UsersFileName = "users.json"
	// SessionsFileName holds every live session.
	SessionsFileName = "sessions.json"

	filePerm os.FileMode = 0o600
)

// FileUserRepository persists the user and session documents.
type FileUserRepository struct {
	usersPath    string
	sessionsPath string
	dir          string
}

// NewFileUserRepository creates a repository rooted at dir.
func NewFileUserRepository(dir string) *FileUserRepository {
	return &FileUserRepository{
		usersPath:    filepath.Join(dir, UsersFileName),
		sessionsPath: filepath.Join(dir, SessionsFileName),
		dir:          dir,
	}
}

// LoadUsers reads every persisted user. A missing file is an empty set.
func (r *FileUserRepository) LoadUsers(_ context.Context) ([]*userDomain.User, error) {
	var users []*userDomain.User
	if err := r.load(r.usersPath, &users); err != nil {
		return nil, errors.Wrap(err, "failed to load users")
	}
	return users, nil
}

// SaveUsers atomically replaces the users document.
func (r *FileUserRepository) SaveUsers(_ context.Context, users []*userDomain.User) error {
	if err := r.save(r.usersPath, users); err != nil {
		return errors.Wrap(err, "failed to save users")
	}
	return nil
}

// LoadSessions reads every persisted session. A missing file is an empty set.
func (r *FileUserRepository) LoadSessions(_ context.Context) ([]*userDomain.Session, error) {
	var sessions []*userDomain.Session
	if err := r.load(r.sessionsPath, &sessions); err != nil {
		return nil, errors.Wrap(err, "failed to load sessions")
	}
	return sessions, nil
}

// SaveSessions atomically replaces the sessions document.
func (r *FileUserRepository) SaveSessions(_ context.Context, sessions []*userDomain.Session) error {
	if err := r.save(r.sessionsPath, sessions); err != nil {
		return errors.Wrap(err, "failed to save sessions")
	}
	return nil
}

func (r *FileUserRepository) load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}

// save writes the document through a temp file plus rename.
func (r *FileUserRepository) save(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
