package domain

import (
	"github.com/allisson/localvault/internal/errors"
)

// Access control errors.
var (
	// ErrPermissionNotFound indicates a referenced permission does not exist.
	ErrPermissionNotFound = errors.Wrap(errors.ErrNotFound, "permission not found")

	// ErrRoleNotFound indicates a referenced role does not exist.
	ErrRoleNotFound = errors.Wrap(errors.ErrNotFound, "role not found")

	// ErrCircularInheritance indicates a role mutation would create an
	// inheritance cycle. The mutation is rejected and never persisted.
	ErrCircularInheritance = errors.Wrap(errors.ErrInvalidInput, "role inheritance cycle detected")
)
