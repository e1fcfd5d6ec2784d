package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
	rbacUsecase "github.com/allisson/localvault/internal/rbac/usecase"
)

// parseConstraints builds the constraint list from CLI flags. A time window is
// given as "HH:MM-HH:MM" and the allowlist as comma-separated IPs or CIDRs.
func parseConstraints(timeWindow, ipAllowlist string) ([]rbacDomain.Constraint, error) {
	var constraint rbacDomain.Constraint
	var hasConstraint bool

	if timeWindow != "" {
		parts := strings.SplitN(timeWindow, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time-window %q (want HH:MM-HH:MM)", timeWindow)
		}
		constraint.TimeWindow = &rbacDomain.TimeWindow{
			NotBefore: strings.TrimSpace(parts[0]),
			NotAfter:  strings.TrimSpace(parts[1]),
		}
		hasConstraint = true
	}
	if ipAllowlist != "" {
		constraint.IPAllowlist = splitTags(ipAllowlist)
		hasConstraint = true
	}

	if !hasConstraint {
		return nil, nil
	}
	return []rbacDomain.Constraint{constraint}, nil
}

// RunCreatePermission registers a permission.
func RunCreatePermission(
	ctx context.Context,
	useCase rbacUsecase.RBACUseCase,
	logger *slog.Logger,
	w io.Writer,
	name, resource, action, timeWindow, ipAllowlist string,
) error {
	constraints, err := parseConstraints(timeWindow, ipAllowlist)
	if err != nil {
		return err
	}

	permission, err := useCase.CreatePermission(ctx, rbacUsecase.CreatePermissionInput{
		Name:        name,
		Resource:    resource,
		Action:      action,
		Constraints: constraints,
	})
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}

	outputJSON(permission, w)
	logger.Info("permission created",
		slog.String("id", permission.ID),
		slog.String("name", permission.Name),
	)
	return nil
}

// RunCreateRole registers a role with permission and inheritance references.
func RunCreateRole(
	ctx context.Context,
	useCase rbacUsecase.RBACUseCase,
	logger *slog.Logger,
	w io.Writer,
	name, permissions, inherits string,
) error {
	role, err := useCase.CreateRole(ctx, rbacUsecase.CreateRoleInput{
		Name:        name,
		Permissions: splitTags(permissions),
		Inherits:    splitTags(inherits),
	})
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	outputJSON(role, w)
	logger.Info("role created", slog.String("id", role.ID), slog.String("name", role.Name))
	return nil
}

// RunUpdateRole replaces a role's permission and inheritance sets.
func RunUpdateRole(
	ctx context.Context,
	useCase rbacUsecase.RBACUseCase,
	logger *slog.Logger,
	w io.Writer,
	id, permissions, inherits string,
) error {
	role, err := useCase.UpdateRole(ctx, id, rbacUsecase.UpdateRoleInput{
		Permissions: splitTags(permissions),
		Inherits:    splitTags(inherits),
	})
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	outputJSON(role, w)
	logger.Info("role updated", slog.String("id", role.ID), slog.String("name", role.Name))
	return nil
}

// RunResolvePermissions prints a role's effective permission set.
func RunResolvePermissions(
	ctx context.Context,
	useCase rbacUsecase.RBACUseCase,
	w io.Writer,
	roleID string,
) error {
	permissions, err := useCase.ResolvePermissions(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to resolve permissions: %w", err)
	}
	outputJSON(permissions, w)
	return nil
}
