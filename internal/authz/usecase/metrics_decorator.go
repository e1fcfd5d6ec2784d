package usecase

import (
	"context"
	"time"

	authzDomain "github.com/allisson/localvault/internal/authz/domain"
	"github.com/allisson/localvault/internal/metrics"
)

// authorizationUseCaseWithMetrics decorates AuthorizationUseCase with metrics
// instrumentation.
type authorizationUseCaseWithMetrics struct {
	next    AuthorizationUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthorizationUseCaseWithMetrics wraps an AuthorizationUseCase with
// metrics recording.
func NewAuthorizationUseCaseWithMetrics(useCase AuthorizationUseCase, m metrics.BusinessMetrics) AuthorizationUseCase {
	return &authorizationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Authorize records metrics for authorization decisions. Denials count as
// "denied" rather than "error": only an engine failure is an error.
func (a *authorizationUseCaseWithMetrics) Authorize(
	ctx context.Context,
	input AuthorizeInput,
) (*authzDomain.Decision, error) {
	start := time.Now()
	decision, err := a.next.Authorize(ctx, input)

	status := "granted"
	switch {
	case err != nil:
		status = "error"
	case !decision.Granted:
		status = "denied"
	}

	a.metrics.RecordOperation(ctx, "authz", "authorize", status)
	a.metrics.RecordDuration(ctx, "authz", "authorize", time.Since(start), status)

	return decision, err
}
