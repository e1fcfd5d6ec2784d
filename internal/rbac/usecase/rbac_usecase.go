package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/localvault/internal/errors"
	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"

	appValidation "github.com/allisson/localvault/internal/validation"
)

// rbacUseCase holds the access control graph in memory and persists every
// successful mutation. The mutex serializes mutations; resolution takes the
// read side.
type rbacUseCase struct {
	repo RBACRepository

	mu          sync.RWMutex
	permsByID   map[string]*rbacDomain.Permission
	permsByName map[string]*rbacDomain.Permission
	rolesByID   map[string]*rbacDomain.Role
	rolesByName map[string]*rbacDomain.Role
}

// NewRBACUseCase creates an access control use case over the given repository.
func NewRBACUseCase(repo RBACRepository) RBACUseCase {
	return &rbacUseCase{
		repo:        repo,
		permsByID:   make(map[string]*rbacDomain.Permission),
		permsByName: make(map[string]*rbacDomain.Permission),
		rolesByID:   make(map[string]*rbacDomain.Role),
		rolesByName: make(map[string]*rbacDomain.Role),
	}
}

// Initialize loads the persisted graph into memory.
func (u *rbacUseCase) Initialize(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	permissions, err := u.repo.LoadPermissions(ctx)
	if err != nil {
		return err
	}
	roles, err := u.repo.LoadRoles(ctx)
	if err != nil {
		return err
	}

	for _, permission := range permissions {
		u.permsByID[permission.ID] = permission
		u.permsByName[permission.Name] = permission
	}
	for _, role := range roles {
		u.rolesByID[role.ID] = role
		u.rolesByName[role.Name] = role
	}
	return nil
}

func validateCreatePermissionInput(input CreatePermissionInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Resource,
			validation.Required.Error("resource is required"),
		),
		validation.Field(&input.Action,
			validation.Required.Error("action is required"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreatePermission registers a new permission with a unique name.
func (u *rbacUseCase) CreatePermission(
	ctx context.Context,
	input CreatePermissionInput,
) (*rbacDomain.Permission, error) {
	if err := validateCreatePermissionInput(input); err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.permsByName[input.Name]; exists {
		return nil, errors.Wrapf(errors.ErrConflict, "permission %q already exists", input.Name)
	}

	permission := &rbacDomain.Permission{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Name:        input.Name,
		Resource:    input.Resource,
		Action:      input.Action,
		Constraints: input.Constraints,
		CreatedAt:   time.Now().UTC(),
	}

	u.permsByID[permission.ID] = permission
	u.permsByName[permission.Name] = permission
	if err := u.repo.SavePermissions(ctx, u.permissionList()); err != nil {
		delete(u.permsByID, permission.ID)
		delete(u.permsByName, permission.Name)
		return nil, err
	}
	return permission, nil
}

// validateRoleReferences checks every referenced permission and role exists.
// Callers hold the lock.
func (u *rbacUseCase) validateRoleReferences(permissions, inherits []string) error {
	for _, id := range permissions {
		if _, ok := u.permsByID[id]; !ok {
			return errors.Wrapf(rbacDomain.ErrPermissionNotFound, "permission id %s", id)
		}
	}
	for _, id := range inherits {
		if _, ok := u.rolesByID[id]; !ok {
			return errors.Wrapf(rbacDomain.ErrRoleNotFound, "inherited role id %s", id)
		}
	}
	return nil
}

// CreateRole registers a new role after validating its references.
func (u *rbacUseCase) CreateRole(ctx context.Context, input CreateRoleInput) (*rbacDomain.Role, error) {
	err := appValidation.WrapValidationError(validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
	))
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.rolesByName[input.Name]; exists {
		return nil, errors.Wrapf(errors.ErrConflict, "role %q already exists", input.Name)
	}
	if err := u.validateRoleReferences(input.Permissions, input.Inherits); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	role := &rbacDomain.Role{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Name:        input.Name,
		Permissions: input.Permissions,
		Inherits:    input.Inherits,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// A fresh role cannot be inherited by anyone yet, but its own inherits
	// chain still must not loop back through existing edges.
	if u.wouldCycle(role.ID, role.Inherits) {
		return nil, rbacDomain.ErrCircularInheritance
	}

	u.rolesByID[role.ID] = role
	u.rolesByName[role.Name] = role
	if err := u.repo.SaveRoles(ctx, u.roleList()); err != nil {
		delete(u.rolesByID, role.ID)
		delete(u.rolesByName, role.Name)
		return nil, err
	}
	return role, nil
}

// UpdateRole replaces a role's permission and inheritance sets. The in-memory
// graph only changes after the mutation validates, so a rejected update leaves
// everything as it was.
func (u *rbacUseCase) UpdateRole(
	ctx context.Context,
	id string,
	input UpdateRoleInput,
) (*rbacDomain.Role, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	existing, ok := u.rolesByID[id]
	if !ok {
		return nil, rbacDomain.ErrRoleNotFound
	}
	if err := u.validateRoleReferences(input.Permissions, input.Inherits); err != nil {
		return nil, err
	}
	if u.wouldCycle(id, input.Inherits) {
		return nil, rbacDomain.ErrCircularInheritance
	}

	updated := *existing
	updated.Permissions = input.Permissions
	updated.Inherits = input.Inherits
	updated.UpdatedAt = time.Now().UTC()

	u.rolesByID[id] = &updated
	u.rolesByName[updated.Name] = &updated
	if err := u.repo.SaveRoles(ctx, u.roleList()); err != nil {
		u.rolesByID[id] = existing
		u.rolesByName[existing.Name] = existing
		return nil, err
	}
	return &updated, nil
}

// wouldCycle reports whether giving roleID the candidate inherits set creates
// an inheritance cycle: a path from any inherited role back to roleID.
// Callers hold the lock.
func (u *rbacUseCase) wouldCycle(roleID string, inherits []string) bool {
	visited := make(map[string]bool)
	stack := append([]string(nil), inherits...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == roleID {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		if role, ok := u.rolesByID[current]; ok {
			stack = append(stack, role.Inherits...)
		}
	}
	return false
}

// GetRoleByName resolves a role by its unique name.
func (u *rbacUseCase) GetRoleByName(_ context.Context, name string) (*rbacDomain.Role, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	role, ok := u.rolesByName[name]
	if !ok {
		return nil, rbacDomain.ErrRoleNotFound
	}
	return role, nil
}

// ResolvePermissions unions the direct permissions of every role reachable
// from roleID over inherits edges. The visited set guarantees termination even
// on a graph corrupted outside this process.
func (u *rbacUseCase) ResolvePermissions(ctx context.Context, roleID string) ([]*rbacDomain.Permission, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if _, ok := u.rolesByID[roleID]; !ok {
		return nil, rbacDomain.ErrRoleNotFound
	}
	set := make(map[string]*rbacDomain.Permission)
	u.resolveInto(roleID, make(map[string]bool), set)
	return sortedPermissions(set), nil
}

// ResolveForRoles resolves the union permission set across several roles.
// Unknown role IDs are skipped: a dangling reference on a user must not make
// every authorization call error out.
func (u *rbacUseCase) ResolveForRoles(_ context.Context, roleIDs []string) ([]*rbacDomain.Permission, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	visited := make(map[string]bool)
	set := make(map[string]*rbacDomain.Permission)
	for _, roleID := range roleIDs {
		u.resolveInto(roleID, visited, set)
	}
	return sortedPermissions(set), nil
}

// resolveInto walks the inherits graph depth-first. Callers hold the lock.
func (u *rbacUseCase) resolveInto(roleID string, visited map[string]bool, set map[string]*rbacDomain.Permission) {
	if visited[roleID] {
		return
	}
	visited[roleID] = true

	role, ok := u.rolesByID[roleID]
	if !ok {
		return
	}
	for _, permissionID := range role.Permissions {
		if permission, ok := u.permsByID[permissionID]; ok {
			set[permissionID] = permission
		}
	}
	for _, inherited := range role.Inherits {
		u.resolveInto(inherited, visited, set)
	}
}

// PermissionsFor returns the registered permissions matching (resource, action).
func (u *rbacUseCase) PermissionsFor(_ context.Context, resource, action string) ([]*rbacDomain.Permission, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var matches []*rbacDomain.Permission
	for _, permission := range u.permsByID {
		if permission.Resource == resource && permission.Action == action {
			matches = append(matches, permission)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

// permissionList snapshots the permission map sorted by ID for persistence.
// Callers hold the lock.
func (u *rbacUseCase) permissionList() []*rbacDomain.Permission {
	return sortedPermissions(u.permsByID)
}

// roleList snapshots the role map sorted by ID for persistence. Callers hold
// the lock.
func (u *rbacUseCase) roleList() []*rbacDomain.Role {
	roles := make([]*rbacDomain.Role, 0, len(u.rolesByID))
	for _, role := range u.rolesByID {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles
}

func sortedPermissions(set map[string]*rbacDomain.Permission) []*rbacDomain.Permission {
	permissions := make([]*rbacDomain.Permission, 0, len(set))
	for _, permission := range set {
		permissions = append(permissions, permission)
	}
	sort.Slice(permissions, func(i, j int) bool { return permissions[i].ID < permissions[j].ID })
	return permissions
}
