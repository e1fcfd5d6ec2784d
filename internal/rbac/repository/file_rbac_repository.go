// Package repository provides filesystem persistence for the access control
// graph. Permissions and roles live in two JSON documents in the store
// directory, written atomically with mode 0600.
package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/allisson/localvault/internal/errors"
	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
)

const (
	// PermissionsFileName holds every registered permission.
	PermissionsFileName = "permissions.json"
	// RolesFileName holds every role and its inheritance edges.
	RolesFileName = "roles.json"

	filePerm os.FileMode = 0o600
)

// FileRBACRepository persists the permission and role documents.
type FileRBACRepository struct {
	permissionsPath string
	rolesPath       string
	dir             string
}

// NewFileRBACRepository creates a repository rooted at dir.
func NewFileRBACRepository(dir string) *FileRBACRepository {
	return &FileRBACRepository{
		permissionsPath: filepath.Join(dir, PermissionsFileName),
		rolesPath:       filepath.Join(dir, RolesFileName),
		dir:             dir,
	}
}

// LoadPermissions reads every persisted permission. A missing file is an empty
// graph, not an error.
func (r *FileRBACRepository) LoadPermissions(_ context.Context) ([]*rbacDomain.Permission, error) {
	var permissions []*rbacDomain.Permission
	if err := r.load(r.permissionsPath, &permissions); err != nil {
		return nil, errors.Wrap(err, "failed to load permissions")
	}
	return permissions, nil
}

// SavePermissions atomically replaces the permissions document.
func (r *FileRBACRepository) SavePermissions(_ context.Context, permissions []*rbacDomain.Permission) error {
	if err := r.save(r.permissionsPath, permissions); err != nil {
		return errors.Wrap(err, "failed to save permissions")
	}
	return nil
}

// LoadRoles reads every persisted role. A missing file is an empty graph.
func (r *FileRBACRepository) LoadRoles(_ context.Context) ([]*rbacDomain.Role, error) {
	var roles []*rbacDomain.Role
	if err := r.load(r.rolesPath, &roles); err != nil {
		return nil, errors.Wrap(err, "failed to load roles")
	}
	return roles, nil
}

// SaveRoles atomically replaces the roles document.
func (r *FileRBACRepository) SaveRoles(_ context.Context, roles []*rbacDomain.Role) error {
	if err := r.save(r.rolesPath, roles); err != nil {
		return errors.Wrap(err, "failed to save roles")
	}
	return nil
}

func (r *FileRBACRepository) load(path string, out any) error {
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
func (r *FileRBACRepository) save(path string, doc any) error {
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
