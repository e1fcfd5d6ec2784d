package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	userDomain "github.com/allisson/localvault/internal/user/domain"
	userUsecase "github.com/allisson/localvault/internal/user/usecase"
)

// readPassword returns the password from the flag when given, otherwise reads
// one line from the reader so passwords stay out of shell history.
func readPassword(password string, ioTuple IOTuple) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(ioTuple.Writer, "password: ")
	scanner := bufio.NewScanner(ioTuple.Reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return "", fmt.Errorf("no password provided")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// RunCreateUser registers a user account.
func RunCreateUser(
	ctx context.Context,
	useCase userUsecase.UserUseCase,
	logger *slog.Logger,
	ioTuple IOTuple,
	username, password, roles string,
) error {
	pw, err := readPassword(password, ioTuple)
	if err != nil {
		return err
	}

	user, err := useCase.CreateUser(ctx, userUsecase.CreateUserInput{
		Username: username,
		Password: pw,
		Roles:    splitTags(roles),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	outputJSON(user, ioTuple.Writer)
	logger.Info("user created", slog.String("id", user.ID), slog.String("username", user.Username))
	return nil
}

// RunAuthenticate runs a login attempt and prints the session and tokens.
func RunAuthenticate(
	ctx context.Context,
	useCase userUsecase.UserUseCase,
	logger *slog.Logger,
	ioTuple IOTuple,
	username, password, ipAddress, userAgent string,
) error {
	pw, err := readPassword(password, ioTuple)
	if err != nil {
		return err
	}

	output, err := useCase.Authenticate(ctx, userUsecase.AuthenticateInput{
		Username:  username,
		Password:  pw,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	outputJSON(map[string]any{
		"session_id":    output.Session.ID,
		"token":         output.Token,
		"refresh_token": output.RefreshToken,
		"expires_at":    output.Session.ExpiresAt,
	}, ioTuple.Writer)
	logger.Info("user authenticated",
		slog.String("user_id", output.User.ID),
		slog.String("session_id", output.Session.ID),
	)
	return nil
}

// RunRefresh exchanges a refresh token for a new token pair.
func RunRefresh(
	ctx context.Context,
	useCase userUsecase.UserUseCase,
	logger *slog.Logger,
	w io.Writer,
	refreshToken string,
) error {
	output, err := useCase.Refresh(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	outputJSON(map[string]any{
		"session_id":    output.Session.ID,
		"token":         output.Token,
		"refresh_token": output.RefreshToken,
		"expires_at":    output.Session.ExpiresAt,
	}, w)
	logger.Info("session refreshed", slog.String("session_id", output.Session.ID))
	return nil
}

// RunRevokeSession removes a session.
func RunRevokeSession(
	ctx context.Context,
	useCase userUsecase.UserUseCase,
	logger *slog.Logger,
	w io.Writer,
	sessionID string,
) error {
	existed, err := useCase.RevokeSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if existed {
		fmt.Fprintf(w, "revoked session %q\n", sessionID)
		logger.Info("session revoked", slog.String("session_id", sessionID))
	} else {
		fmt.Fprintf(w, "session %q not found\n", sessionID)
	}
	return nil
}

// RunSetUserStatus applies an administrative status transition.
func RunSetUserStatus(
	ctx context.Context,
	useCase userUsecase.UserUseCase,
	logger *slog.Logger,
	w io.Writer,
	userID, status string,
) error {
	if err := useCase.SetStatus(ctx, userID, userDomain.Status(status)); err != nil {
		return fmt.Errorf("failed to set user status: %w", err)
	}
	fmt.Fprintf(w, "user %q status set to %q\n", userID, status)
	logger.Info("user status changed", slog.String("user_id", userID), slog.String("status", status))
	return nil
}

// RunUnlockUser clears a lockout and resets the failure counter.
func RunUnlockUser(
	ctx context.Context,
	useCase userUsecase.UserUseCase,
	logger *slog.Logger,
	w io.Writer,
	userID string,
) error {
	if err := useCase.Unlock(ctx, userID); err != nil {
		return fmt.Errorf("failed to unlock user: %w", err)
	}
	fmt.Fprintf(w, "user %q unlocked\n", userID)
	logger.Info("user unlocked", slog.String("user_id", userID))
	return nil
}
