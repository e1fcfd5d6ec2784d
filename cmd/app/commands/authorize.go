package commands

import (
	"context"
	"fmt"
	"io"

	authzUsecase "github.com/allisson/localvault/internal/authz/usecase"
)

// RunAuthorize evaluates an access request and prints the full decision.
// A denial is a valid outcome, not an error.
func RunAuthorize(
	ctx context.Context,
	useCase authzUsecase.AuthorizationUseCase,
	w io.Writer,
	userID, sessionID, resource, action, ipAddress string,
) error {
	decision, err := useCase.Authorize(ctx, authzUsecase.AuthorizeInput{
		UserID:    userID,
		SessionID: sessionID,
		Resource:  resource,
		Action:    action,
		IPAddress: ipAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to authorize: %w", err)
	}

	outputJSON(decision, w)
	return nil
}
