package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/localvault/internal/audit"
	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	cryptoRepository "github.com/allisson/localvault/internal/crypto/repository"
	cryptoService "github.com/allisson/localvault/internal/crypto/service"
	rbacDomain "github.com/allisson/localvault/internal/rbac/domain"
	rbacRepository "github.com/allisson/localvault/internal/rbac/repository"
	rbacUsecase "github.com/allisson/localvault/internal/rbac/usecase"
	secretsRepository "github.com/allisson/localvault/internal/secrets/repository"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
	userDomain "github.com/allisson/localvault/internal/user/domain"
	userRepository "github.com/allisson/localvault/internal/user/repository"
	userService "github.com/allisson/localvault/internal/user/service"
	userUsecase "github.com/allisson/localvault/internal/user/usecase"
)

const testPassword = "Sup3r$ecret"

type testEnv struct {
	dir   string
	rbac  rbacUsecase.RBACUseCase
	users userUsecase.UserUseCase
	authz AuthorizationUseCase
}

// newTestEnv wires the full stack: secret store, role graph, user manager, and
// authorization engine over one temp directory.
func newTestEnv(t *testing.T, sessionTTL time.Duration) *testEnv {
	t.Helper()

	dir := t.TempDir()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	masterKey := cryptoDomain.NewMasterKeyHolder()
	envelope := cryptoService.NewEnvelope(cryptoDomain.MinKDFIterations)
	secretRepo := secretsRepository.NewFilesystemSecretRepository(dir, logger)
	keyRepo := cryptoRepository.NewMasterKeyFile(dir, "", nil, cryptoDomain.MinKDFIterations)
	recorder := audit.NewFileRecorder(dir, audit.NewSigner(), masterKey.Bytes)
	secrets := secretsUsecase.NewSecretUseCase(secretRepo, keyRepo, envelope, recorder, logger, masterKey, 2)
	require.NoError(t, secrets.Initialize(ctx))

	rbac := rbacUsecase.NewRBACUseCase(rbacRepository.NewFileRBACRepository(dir))
	require.NoError(t, rbac.Initialize(ctx))

	users := userUsecase.NewUserUseCase(
		userRepository.NewFileUserRepository(dir),
		secrets,
		rbac,
		userService.NewPasswordService(),
		userService.NewTokenService(),
		logger,
		userUsecase.Options{
			SessionTTL:         sessionTTL,
			SessionCap:         3,
			LockoutMaxAttempts: 5,
			LockoutDuration:    30 * time.Minute,
		},
	)
	require.NoError(t, users.Initialize(ctx))

	authz := NewAuthorizationUseCase(users, rbac, recorder, logger)

	return &testEnv{dir: dir, rbac: rbac, users: users, authz: authz}
}

// setupUserWithPermission creates a permission, a role holding it, and a
// logged-in user with that role. Returns the user and session.
func (e *testEnv) setupUserWithPermission(
	t *testing.T,
	username string,
	input rbacUsecase.CreatePermissionInput,
) (*userDomain.User, *userDomain.Session) {
	t.Helper()
	ctx := context.Background()

	permission, err := e.rbac.CreatePermission(ctx, input)
	require.NoError(t, err)
	role, err := e.rbac.CreateRole(ctx, rbacUsecase.CreateRoleInput{
		Name:        username + "-role",
		Permissions: []string{permission.ID},
	})
	require.NoError(t, err)

	user, err := e.users.CreateUser(ctx, userUsecase.CreateUserInput{
		Username: username,
		Password: testPassword,
		Roles:    []string{role.ID},
	})
	require.NoError(t, err)

	out, err := e.users.Authenticate(ctx, userUsecase.AuthenticateInput{
		Username:  username,
		Password:  testPassword,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	return user, out.Session
}

func TestAuthorizationUseCase_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ExactPermission", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "shell-execute",
			Resource: "shell",
			Action:   "execute",
		})

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		assert.True(t, decision.Granted)
		assert.Contains(t, decision.UserPermissions, "shell-execute")
	})

	t.Run("Denied_DifferentActionOnSameResource", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "shell-execute",
			Resource: "shell",
			Action:   "execute",
		})

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "delete",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
		assert.Equal(t, "missing required permission", decision.Reason)
	})

	t.Run("Success_WildcardAction", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		user, session := env.setupUserWithPermission(t, "root", rbacUsecase.CreatePermissionInput{
			Name:     "shell-all",
			Resource: "shell",
			Action:   "*",
		})

		for _, action := range []string{"execute", "delete", "read"} {
			decision, err := env.authz.Authorize(ctx, AuthorizeInput{
				UserID:    user.ID,
				SessionID: session.ID,
				Resource:  "shell",
				Action:    action,
			})
			require.NoError(t, err)
			assert.True(t, decision.Granted, "wildcard should grant %s", action)
		}

		// The wildcard does not cross resources.
		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "fs",
			Action:    "write",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
	})

	t.Run("Denied_ExpiredSession", func(t *testing.T) {
		env := newTestEnv(t, 20*time.Millisecond)
		user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "shell-execute",
			Resource: "shell",
			Action:   "execute",
		})

		time.Sleep(40 * time.Millisecond)

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
		assert.Equal(t, "session expired", decision.Reason)
	})

	t.Run("Denied_UnknownSession", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    "whoever",
			SessionID: "no-such-session",
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
		assert.Equal(t, "session not found", decision.Reason)
	})

	t.Run("Denied_SessionUserMismatch", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		_, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "shell-execute",
			Resource: "shell",
			Action:   "execute",
		})

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    "someone-else",
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
	})

	t.Run("Denied_SuspendedUser", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "shell-execute",
			Resource: "shell",
			Action:   "execute",
		})
		require.NoError(t, env.users.SetStatus(ctx, user.ID, userDomain.StatusSuspended))

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
		assert.Equal(t, "user is not active", decision.Reason)
	})
}

func TestAuthorizationUseCase_LiveResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("RoleEditTakesEffectImmediately", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "shell-execute",
			Resource: "shell",
			Action:   "execute",
		})

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		require.True(t, decision.Granted)

		// Strip the role's permissions. The session still carries its login
		// snapshot, but the next check must resolve from the live graph.
		role, err := env.rbac.GetRoleByName(ctx, "alice-role")
		require.NoError(t, err)
		_, err = env.rbac.UpdateRole(ctx, role.ID, rbacUsecase.UpdateRoleInput{})
		require.NoError(t, err)

		assert.NotEmpty(t, session.Permissions, "snapshot still holds the stale grant")

		decision, err = env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted, "stale snapshot must not grant")
	})
}

func TestAuthorizationUseCase_Constraints(t *testing.T) {
	ctx := context.Background()

	t.Run("Denied_IPNotInAllowlist", func(t *testing.T) {
		env := newTestEnv(t, 8*time.Hour)
		user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
			Name:     "restricted-execute",
			Resource: "shell",
			Action:   "execute",
			Constraints: []rbacDomain.Constraint{
				{IPAllowlist: []string{"192.168.0.0/16"}},
			},
		})

		decision, err := env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
			IPAddress: "203.0.113.7",
		})
		require.NoError(t, err)
		assert.False(t, decision.Granted)
		assert.Equal(t, "constraint violated", decision.Reason)
		require.Len(t, decision.ViolatedConstraints, 1)
		assert.Contains(t, decision.ViolatedConstraints[0], "allowlist")

		// From inside the allowlist the same permission grants.
		decision, err = env.authz.Authorize(ctx, AuthorizeInput{
			UserID:    user.ID,
			SessionID: session.ID,
			Resource:  "shell",
			Action:    "execute",
			IPAddress: "192.168.1.10",
		})
		require.NoError(t, err)
		assert.True(t, decision.Granted)
	})
}

func TestAuthorizationUseCase_ActivityTracking(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, 8*time.Hour)
	user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
		Name:     "shell-execute",
		Resource: "shell",
		Action:   "execute",
	})

	before, err := env.users.GetSession(ctx, session.ID)
	require.NoError(t, err)
	beforeActivity := before.LastActivity
	beforeExpiry := before.ExpiresAt

	time.Sleep(5 * time.Millisecond)

	_, err = env.authz.Authorize(ctx, AuthorizeInput{
		UserID:    user.ID,
		SessionID: session.ID,
		Resource:  "shell",
		Action:    "execute",
	})
	require.NoError(t, err)

	after, err := env.users.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, after.LastActivity.After(beforeActivity), "activity timestamp advances")
	assert.Equal(t, beforeExpiry, after.ExpiresAt, "expiry never slides")
}

func TestAuthorizationUseCase_DecisionAudit(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, 8*time.Hour)
	user, session := env.setupUserWithPermission(t, "alice", rbacUsecase.CreatePermissionInput{
		Name:     "shell-execute",
		Resource: "shell",
		Action:   "execute",
	})

	_, err := env.authz.Authorize(ctx, AuthorizeInput{
		UserID:    user.ID,
		SessionID: session.ID,
		Resource:  "shell",
		Action:    "execute",
	})
	require.NoError(t, err)
	_, err = env.authz.Authorize(ctx, AuthorizeInput{
		UserID:    user.ID,
		SessionID: session.ID,
		Resource:  "shell",
		Action:    "delete",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.dir, audit.DecisionLogFileName))
	require.NoError(t, err)

	var entries []audit.DecisionEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry audit.DecisionEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)

	assert.Equal(t, user.ID, entries[0].UserID)
	assert.Equal(t, "execute", entries[0].Action)
	assert.True(t, entries[0].Granted)
	assert.NotEmpty(t, entries[0].Signature)

	assert.Equal(t, "delete", entries[1].Action)
	assert.False(t, entries[1].Granted)
	assert.Equal(t, "missing required permission", entries[1].Reason)
}
