// Package usecase implements the authorization engine: session and account
// checks, live permission resolution, and constraint evaluation.
package usecase

import (
	"context"

	authzDomain "github.com/allisson/localvault/internal/authz/domain"
	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
	userDomain "github.com/allisson/localvault/internal/user/domain"
)

// SessionReader is the subset of the user use case authorization needs.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*userDomain.Session, error)
	GetUser(ctx context.Context, userID string) (*userDomain.User, error)
	TouchSession(ctx context.Context, sessionID string) error
}

// PermissionSource resolves permission sets from the live role graph.
type PermissionSource interface {
	ResolveForRoles(ctx context.Context, roleIDs []string) ([]*rbacDomain.Permission, error)
	PermissionsFor(ctx context.Context, resource, action string) ([]*rbacDomain.Permission, error)
}

// AuthorizeInput carries one authorization request.
type AuthorizeInput struct {
	UserID    string
	SessionID string
	Resource  string
	Action    string
	IPAddress string
}

// AuthorizationUseCase defines the interface for authorization decisions.
type AuthorizationUseCase interface {
	// Authorize evaluates one request against the live role graph. The
	// decision is valid against the permission set resolved at call time;
	// later revocations are not retroactive. Every decision is recorded to
	// the audit trail.
	Authorize(ctx context.Context, input AuthorizeInput) (*authzDomain.Decision, error)
}
