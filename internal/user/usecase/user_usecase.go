package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"golang.org/x/time/rate"

	"github.com/allisson/localvault/internal/errors"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
	userDomain "github.com/allisson/localvault/internal/user/domain"
	userService "github.com/allisson/localvault/internal/user/service"

	appValidation "github.com/allisson/localvault/internal/validation"
)

// userUseCase holds users and sessions in memory and persists every mutation.
type userUseCase struct {
	repo      UserRepository
	secrets   SecretStore
	resolver  PermissionResolver
	passwords userService.PasswordService
	tokens    userService.TokenService
	logger    *slog.Logger
	opts      Options

	mu           sync.Mutex
	usersByID    map[string]*userDomain.User
	usersByName  map[string]*userDomain.User
	sessionsByID map[string]*userDomain.Session

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewUserUseCase creates a user use case instance with the given dependencies.
func NewUserUseCase(
	repo UserRepository,
	secrets SecretStore,
	resolver PermissionResolver,
	passwords userService.PasswordService,
	tokens userService.TokenService,
	logger *slog.Logger,
	opts Options,
) UserUseCase {
	if opts.SessionCap < 1 {
		opts.SessionCap = 1
	}
	return &userUseCase{
		repo:         repo,
		secrets:      secrets,
		resolver:     resolver,
		passwords:    passwords,
		tokens:       tokens,
		logger:       logger,
		opts:         opts,
		usersByID:    make(map[string]*userDomain.User),
		usersByName:  make(map[string]*userDomain.User),
		sessionsByID: make(map[string]*userDomain.Session),
		limiters:     make(map[string]*rate.Limiter),
	}
}

// Initialize loads persisted users and sessions into memory.
func (u *userUseCase) Initialize(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	users, err := u.repo.LoadUsers(ctx)
	if err != nil {
		return err
	}
	sessions, err := u.repo.LoadSessions(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		u.usersByID[user.ID] = user
		u.usersByName[user.Username] = user
	}
	for _, session := range sessions {
		u.sessionsByID[session.ID] = session
	}
	return nil
}

/// validateCreateUserInput validates registration input: username charset and
// password strength (min 8 chars, upper, lower, number, special).
func validateCreateUserInput(input CreateUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.Username,
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateUser registers an account. The Argon2id hash of the password is stored
// in the secret store under "user_password_{id}", never in the user document.
func (u *userUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*userDomain.User, error) {
	if err := validateCreateUserInput(input); err != nil {
		return nil, err
	}

	hashed, err := u.passwords.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.usersByName[input.Username]; exists {
		return nil, errors.Wrapf(errors.ErrConflict, "username %q already taken", input.Username)
	}

	now := time.Now().UTC()
	user := &userDomain.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Username:  input.Username,
		Roles:     input.Roles,
		Status:    userDomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := u.secrets.Store(ctx, user.PasswordSecretName(), []byte(hashed), secretsUsecase.StoreOptions{
		Description: "password hash for user " + input.Username,
		Tags:        []string{"internal", "credentials"},
	}); err != nil {
		return nil, err
	}

	u.usersByID[user.ID] = user
	u.usersByName[user.Username] = user
	if err := u.repo.SaveUsers(ctx, u.userList()); err != nil {
		delete(u.usersByID, user.ID)
		delete(u.usersByName, user.Username)
		// Remove the credential secret stored above so a failed registration
		// leaves no orphan behind.
		if _, deleteErr := u.secrets.Delete(ctx, user.PasswordSecretName()); deleteErr != nil {
			u.logger.Error("failed to remove credential secret for unregistered user",
				slog.String("user_id", user.ID),
				slog.Any("error", deleteErr),
			)
		}
		return nil, err
	}

	u.logger.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// allowAttempt consults the per-IP rate limiter before any account lookup.
func (u *userUseCase) allowAttempt(ipAddress string) bool {
	if !u.opts.RateLimitEnabled {
		return true
	}

	u.limiterMu.Lock()
	defer u.limiterMu.Unlock()

	limiter, ok := u.limiters[ipAddress]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(u.opts.RateLimitPerSec), u.opts.RateLimitBurst)
		u.limiters[ipAddress] = limiter
	}
	return limiter.Allow()
}

// Authenticate runs a login attempt.
//
// Failure responses are deliberately generic: an unknown username, an inactive
// account, a locked account, and a wrong password all return
// ErrInvalidCredentials so the login surface cannot be used for username
// enumeration. Lockouts are logged instead of surfaced; only the per-IP rate
// limiter is distinguishable, and it fires before any account lookup.
func (u *userUseCase) Authenticate(ctx context.Context, input AuthenticateInput) (*AuthenticateOutput, error) {
	if !u.allowAttempt(input.IPAddress) {
		return nil, userDomain.ErrRateLimited
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	now := time.Now().UTC()

	user, ok := u.usersByName[input.Username]
	if !ok || !user.Active() {
		return nil, userDomain.ErrInvalidCredentials
	}
	if user.Locked(now) {
		// Fails before the password check, independent of correctness. The
		// response stays generic so a lockout does not confirm the username.
		u.logger.Warn("login attempt on locked account",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", *user.LockedUntil),
		)
		return nil, userDomain.ErrInvalidCredentials
	}

	hashed, err := u.secrets.Get(ctx, user.PasswordSecretName(), user.ID)
	if err != nil {
		return nil, err
	}
	if hashed == nil || !u.passwords.ComparePassword(input.Password, string(hashed)) {
		return nil, u.recordFailure(ctx, user)
	}

	// Success: reset the failure counter and clear any expired lock.
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	user.UpdatedAt = now

	session, token, refreshToken, err := u.createSession(ctx, user, input, now)
	if err != nil {
		return nil, err
	}
	if err := u.repo.SaveUsers(ctx, u.userList()); err != nil {
		return nil, err
	}

	u.logger.Info("user authenticated",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)
	return &AuthenticateOutput{
		User:         user,
		Session:      session,
		Token:        token,
		RefreshToken: refreshToken,
	}, nil
}

// recordFailure increments the failure counter, locking the account when the
// threshold is reached. Callers hold the lock. The lockout expiry is stamped
// from a fresh clock reading: the caller's timestamp predates the slow
// password verify, which would silently shorten the lockout window.
func (u *userUseCase) recordFailure(ctx context.Context, user *userDomain.User) error {
	now := time.Now().UTC()
	user.FailedLoginAttempts++
	user.UpdatedAt = now
	if user.FailedLoginAttempts >= u.opts.LockoutMaxAttempts {
		lockedUntil := now.Add(u.opts.LockoutDuration)
		user.LockedUntil = &lockedUntil
		user.FailedLoginAttempts = 0
		u.logger.Warn("account locked after repeated failures",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", lockedUntil),
		)
	}
	if err := u.repo.SaveUsers(ctx, u.userList()); err != nil {
		u.logger.Error("failed to persist login failure state",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return userDomain.ErrInvalidCredentials
}

// createSession builds and persists a session, evicting the user's oldest
// sessions by last activity beyond the concurrency cap. Callers hold the lock.
func (u *userUseCase) createSession(
	ctx context.Context,
	user *userDomain.User,
	input AuthenticateInput,
	now time.Time,
) (*userDomain.Session, string, string, error) {
	token, tokenHash, err := u.tokens.GenerateToken()
	if err != nil {
		return nil, "", "", err
	}
	refreshToken, refreshHash, err := u.tokens.GenerateToken()
	if err != nil {
		return nil, "", "", err
	}

	// Point-in-time snapshot for diagnostics. Authorization re-resolves.
	var snapshot []string
	if permissions, err := u.resolver.ResolveForRoles(ctx, user.Roles); err == nil {
		for _, permission := range permissions {
			snapshot = append(snapshot, permission.ID)
		}
	}

	session := &userDomain.Session{
		ID:               uuid.Must(uuid.NewV7()).String(),
		UserID:           user.ID,
		TokenHash:        tokenHash,
		RefreshTokenHash: refreshHash,
		ExpiresAt:        now.Add(u.opts.SessionTTL),
		CreatedAt:        now,
		LastActivity:     now,
		IPAddress:        input.IPAddress,
		UserAgent:        input.UserAgent,
		Permissions:      snapshot,
		Roles:            user.Roles,
	}

	u.sessionsByID[session.ID] = session
	u.evictBeyondCap(user.ID)

	if err := u.repo.SaveSessions(ctx, u.sessionList()); err != nil {
		delete(u.sessionsByID, session.ID)
		return nil, "", "", err
	}
	return session, token, refreshToken, nil
}

// evictBeyondCap removes the user's oldest sessions by last activity until the
// cap holds. Callers hold the lock.
func (u *userUseCase) evictBeyondCap(userID string) {
	var owned []*userDomain.Session
	for _, session := range u.sessionsByID {
		if session.UserID == userID {
			owned = append(owned, session)
		}
	}
	if len(owned) <= u.opts.SessionCap {
		return
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].LastActivity.Before(owned[j].LastActivity)
	})
	for _, session := range owned[:len(owned)-u.opts.SessionCap] {
		delete(u.sessionsByID, session.ID)
		u.logger.Info("evicted oldest session beyond cap",
			slog.String("user_id", userID),
			slog.String("session_id", session.ID),
		)
	}
}

// Refresh exchanges a refresh token for a new token pair on a live session.
func (u *userUseCase) Refresh(ctx context.Context, refreshToken string) (*AuthenticateOutput, error) {
	refreshHash := u.tokens.HashToken(refreshToken)

	u.mu.Lock()
	defer u.mu.Unlock()

	now := time.Now().UTC()

	var session *userDomain.Session
	for _, candidate := range u.sessionsByID {
		if candidate.RefreshTokenHash == refreshHash {
			session = candidate
			break
		}
	}
	if session == nil || session.Expired(now) {
		return nil, userDomain.ErrSessionNotFound
	}

	user, ok := u.usersByID[session.UserID]
	if !ok || !user.Active() {
		return nil, userDomain.ErrInvalidCredentials
	}

	token, tokenHash, err := u.tokens.GenerateToken()
	if err != nil {
		return nil, err
	}
	newRefresh, newRefreshHash, err := u.tokens.GenerateToken()
	if err != nil {
		return nil, err
	}

	session.TokenHash = tokenHash
	session.RefreshTokenHash = newRefreshHash
	session.ExpiresAt = now.Add(u.opts.SessionTTL)
	session.LastActivity = now

	if err := u.repo.SaveSessions(ctx, u.sessionList()); err != nil {
		return nil, err
	}
	return &AuthenticateOutput{
		User:         user,
		Session:      session,
		Token:        token,
		RefreshToken: newRefresh,
	}, nil
}

// RevokeSession removes a session from memory and persisted state. Idempotent.
func (u *userUseCase) RevokeSession(ctx context.Context, sessionID string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.sessionsByID[sessionID]; !ok {
		return false, nil
	}
	delete(u.sessionsByID, sessionID)
	if err := u.repo.SaveSessions(ctx, u.sessionList()); err != nil {
		return false, err
	}
	return true, nil
}

// GetUser returns a user by ID.
func (u *userUseCase) GetUser(_ context.Context, userID string) (*userDomain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.usersByID[userID]
	if !ok {
		return nil, userDomain.ErrUserNotFound
	}
	return user, nil
}

// GetSession returns a session by ID.
func (u *userUseCase) GetSession(_ context.Context, sessionID string) (*userDomain.Session, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	session, ok := u.sessionsByID[sessionID]
	if !ok {
		return nil, userDomain.ErrSessionNotFound
	}
	return session, nil
}

// TouchSession updates a session's last-activity timestamp without sliding its
// expiry.
func (u *userUseCase) TouchSession(ctx context.Context, sessionID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	session, ok := u.sessionsByID[sessionID]
	if !ok {
		return userDomain.ErrSessionNotFound
	}
	session.LastActivity = time.Now().UTC()
	return u.repo.SaveSessions(ctx, u.sessionList())
}

// SetStatus applies an administrative status transition.
func (u *userUseCase) SetStatus(ctx context.Context, userID string, status userDomain.Status) error {
	if !status.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown status %q", status)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.usersByID[userID]
	if !ok {
		return userDomain.ErrUserNotFound
	}
	user.Status = status
	user.UpdatedAt = time.Now().UTC()
	return u.repo.SaveUsers(ctx, u.userList())
}

// Unlock clears a lockout and resets the failure counter.
func (u *userUseCase) Unlock(ctx context.Context, userID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.usersByID[userID]
	if !ok {
		return userDomain.ErrUserNotFound
	}
	user.LockedUntil = nil
	user.FailedLoginAttempts = 0
	user.UpdatedAt = time.Now().UTC()
	return u.repo.SaveUsers(ctx, u.userList())
}

// userList snapshots the user map sorted by ID for persistence. Callers hold
// the lock.
func (u *userUseCase) userList() []*userDomain.User {
	users := make([]*userDomain.User, 0, len(u.usersByID))
	for _, user := range u.usersByID {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// sessionList snapshots the session map sorted by ID for persistence. Callers
// hold the lock.
func (u *userUseCase) sessionList() []*userDomain.Session {
	sessions := make([]*userDomain.Session, 0, len(u.sessionsByID))
	for _, session := range u.sessionsByID {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}
