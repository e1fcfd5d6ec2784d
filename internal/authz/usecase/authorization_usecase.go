package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/localvault/internal/audit"
	authzDomain "github.com/allisson/localvault/internal/authz/domain"
	"github.com/allisson/localvault/internal/errors"
	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
	userDomain "github.com/allisson/localvault/internal/user/domain"
)

// Denial reasons reported on decisions.
const (
	reasonSessionNotFound = "session not found"
	reasonSessionExpired  = "session expired"
	reasonSessionMismatch = "session does not belong to user"
	reasonUserNotFound    = "user not found"
	reasonUserNotActive   = "user is not active"
	reasonNotPermitted    = "missing required permission"
	reasonConstraint      = "constraint violated"
)

// authorizationUseCase evaluates requests against the live role graph.
//
// Sessions carry a permission snapshot from login time, and this engine
// pointedly ignores it: a role edit must take effect on the next check, so
// the caller's permission set is always re-resolved from the current graph.
type authorizationUseCase struct {
	sessions    SessionReader
	permissions PermissionSource
	recorder    audit.Recorder
	logger      *slog.Logger
}

// NewAuthorizationUseCase creates an authorization engine over the session
// store and role graph.
func NewAuthorizationUseCase(
	sessions SessionReader,
	permissions PermissionSource,
	recorder audit.Recorder,
	logger *slog.Logger,
) AuthorizationUseCase {
	return &authorizationUseCase{
		sessions:    sessions,
		permissions: permissions,
		recorder:    recorder,
		logger:      logger,
	}
}

// Authorize evaluates one request. Denials are decisions, not errors; an error
// return means the engine itself could not evaluate.
func (u *authorizationUseCase) Authorize(
	ctx context.Context,
	input AuthorizeInput,
) (*authzDomain.Decision, error) {
	now := time.Now().UTC()

	decision, err := u.evaluate(ctx, input, now)
	if err != nil {
		return nil, err
	}

	u.record(ctx, input, decision, now)
	return decision, nil
}

func (u *authorizationUseCase) evaluate(
	ctx context.Context,
	input AuthorizeInput,
	now time.Time,
) (*authzDomain.Decision, error) {
	session, err := u.sessions.GetSession(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, userDomain.ErrSessionNotFound) {
			return deny(reasonSessionNotFound), nil
		}
		return nil, err
	}
	if session.Expired(now) {
		return deny(reasonSessionExpired), nil
	}
	if session.UserID != input.UserID {
		return deny(reasonSessionMismatch), nil
	}

	user, err := u.sessions.GetUser(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return deny(reasonUserNotFound), nil
		}
		return nil, err
	}
	if !user.Active() {
		return deny(reasonUserNotActive), nil
	}

	// Activity tracking only. The session expiry never slides.
	if err := u.sessions.TouchSession(ctx, input.SessionID); err != nil {
		u.logger.Warn("failed to touch session activity",
			slog.String("session_id", input.SessionID),
			slog.Any("error", err),
		)
	}

	// Live resolution from the current role graph, never the session snapshot.
	userPermissions, err := u.permissions.ResolveForRoles(ctx, user.Roles)
	if err != nil {
		return nil, err
	}
	required, err := u.permissions.PermissionsFor(ctx, input.Resource, input.Action)
	if err != nil {
		return nil, err
	}

	decision := &authzDomain.Decision{
		RequiredPermissions: permissionNames(required),
		UserPermissions:     permissionNames(userPermissions),
	}

	// Every required permission shares the requested (resource, action), so one
	// matching user permission satisfies them all. No match denies even when
	// nothing is registered for the pair: the engine is default-closed.
	var matching []*rbacDomain.Permission
	for _, permission := range userPermissions {
		if permission.Satisfies(input.Resource, input.Action) {
			matching = append(matching, permission)
		}
	}
	if len(matching) == 0 {
		decision.Reason = reasonNotPermitted
		return decision, nil
	}

	for _, permission := range matching {
		for i := range permission.Constraints {
			if reason, violated := permission.Constraints[i].Violation(now, input.IPAddress); violated {
				decision.ViolatedConstraints = append(decision.ViolatedConstraints,
					permission.Name+": "+reason)
			}
		}
	}
	if len(decision.ViolatedConstraints) > 0 {
		decision.Reason = reasonConstraint
		return decision, nil
	}

	decision.Granted = true
	return decision, nil
}

func deny(reason string) *authzDomain.Decision {
	return &authzDomain.Decision{Reason: reason}
}

// record logs and audits the decision. Outcomes only, never secret values.
func (u *authorizationUseCase) record(
	ctx context.Context,
	input AuthorizeInput,
	decision *authzDomain.Decision,
	now time.Time,
) {
	u.logger.Info("authorization decision",
		slog.String("user_id", input.UserID),
		slog.String("resource", input.Resource),
		slog.String("action", input.Action),
		slog.Bool("granted", decision.Granted),
		slog.String("reason", decision.Reason),
	)

	entry := &audit.DecisionEntry{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Resource:  input.Resource,
		Action:    input.Action,
		Granted:   decision.Granted,
		Reason:    decision.Reason,
		Timestamp: now,
	}
	if err := u.recorder.RecordDecision(ctx, entry); err != nil {
		u.logger.Warn("failed to record decision audit entry",
			slog.String("user_id", input.UserID),
			slog.Any("error", err),
		)
	}
}

func permissionNames(permissions []*rbacDomain.Permission) []string {
	names := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		names = append(names, permission.Name)
	}
	return names
}
