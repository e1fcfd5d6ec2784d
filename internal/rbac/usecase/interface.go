// Package usecase implements business logic for the permission and role graph:
// creation, validated mutation, cycle detection, and permission resolution.
package usecase

import (
	"context"

	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
)

// RBACRepository defines the interface for access control graph persistence.
type RBACRepository interface {
	// LoadPermissions reads every persisted permission.
	LoadPermissions(ctx context.Context) ([]*rbacDomain.Permission, error)
	// SavePermissions atomically replaces the permissions document.
	SavePermissions(ctx context.Context, permissions []*rbacDomain.Permission) error
	// LoadRoles reads every persisted role.
	LoadRoles(ctx context.Context) ([]*rbacDomain.Role, error)
	// SaveRoles atomically replaces the roles document.
	SaveRoles(ctx context.Context, roles []*rbacDomain.Role) error
}

// CreatePermissionInput carries the fields for a new permission.
type CreatePermissionInput struct {
	Name        string
	Resource    string
	Action      string
	Constraints []rbacDomain.Constraint
}

// CreateRoleInput carries the fields for a new role.
type CreateRoleInput struct {
	Name        string
	Permissions []string
	Inherits    []string
}

// UpdateRoleInput replaces a role's permission and inheritance sets.
type UpdateRoleInput struct {
	Permissions []string
	Inherits    []string
}

// RBACUseCase defines the interface for access control graph business logic.
type RBACUseCase interface {
	// Initialize loads the persisted graph into memory.
	Initialize(ctx context.Context) error

	// CreatePermission registers a permission with a unique name and non-empty
	// resource and action.
	CreatePermission(ctx context.Context, input CreatePermissionInput) (*rbacDomain.Permission, error)

	// CreateRole registers a role after validating every referenced permission
	// and inherited role exists, and that no inheritance cycle results.
	CreateRole(ctx context.Context, input CreateRoleInput) (*rbacDomain.Role, error)

	// UpdateRole replaces a role's permission and inheritance sets. A mutation
	// that would create a cycle fails with ErrCircularInheritance and leaves
	// the graph unchanged.
	UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*rbacDomain.Role, error)

	// GetRoleByName resolves a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (*rbacDomain.Role, error)

	// ResolvePermissions walks the inheritance graph from one role, unioning
	// each visited role's direct permissions. Deterministic and terminating on
	// any graph.
	ResolvePermissions(ctx context.Context, roleID string) ([]*rbacDomain.Permission, error)

	// ResolveForRoles resolves the union permission set across several roles,
	// the shape authorization needs for a user.
	ResolveForRoles(ctx context.Context, roleIDs []string) ([]*rbacDomain.Permission, error)

	// PermissionsFor returns the registered permissions an authorize call for
	// (resource, action) must satisfy.
	PermissionsFor(ctx context.Context, resource, action string) ([]*rbacDomain.Permission, error)
}
