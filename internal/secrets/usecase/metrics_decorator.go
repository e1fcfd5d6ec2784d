package usecase

import (
	"context"
	"time"

	"github.com/allisson/localvault/internal/metrics"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
)

// secretUseCaseWithMetrics decorates SecretUseCase with metrics instrumentation.
type secretUseCaseWithMetrics struct {
	next    SecretUseCase
	metrics metrics.BusinessMetrics
}

// NewSecretUseCaseWithMetrics wraps a SecretUseCase with metrics recording.
func NewSecretUseCaseWithMetrics(useCase SecretUseCase, m metrics.BusinessMetrics) SecretUseCase {
	return &secretUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record emits the counter and duration for one operation.
func (s *secretUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "secrets", operation, status)
	s.metrics.RecordDuration(ctx, "secrets", operation, time.Since(start), status)
}

// Initialize records metrics for store initialization.
func (s *secretUseCaseWithMetrics) Initialize(ctx context.Context) error {
	start := time.Now()
	err := s.next.Initialize(ctx)
	s.record(ctx, "store_initialize", start, err)
	return err
}

// Store records metrics for secret creation operations.
func (s *secretUseCaseWithMetrics) Store(
	ctx context.Context,
	name string,
	value []byte,
	opts StoreOptions,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Store(ctx, name, value, opts)
	s.record(ctx, "secret_store", start, err)
	return secret, err
}

// Get records metrics for secret retrieval operations.
func (s *secretUseCaseWithMetrics) Get(ctx context.Context, name, userID string) ([]byte, error) {
	start := time.Now()
	value, err := s.next.Get(ctx, name, userID)
	s.record(ctx, "secret_get", start, err)
	return value, err
}

// Update records metrics for secret update operations.
func (s *secretUseCaseWithMetrics) Update(
	ctx context.Context,
	name string,
	value []byte,
	opts StoreOptions,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Update(ctx, name, value, opts)
	s.record(ctx, "secret_update", start, err)
	return secret, err
}

// Delete records metrics for secret deletion operations.
func (s *secretUseCaseWithMetrics) Delete(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	existed, err := s.next.Delete(ctx, name)
	s.record(ctx, "secret_delete", start, err)
	return existed, err
}

// List records metrics for secret listing operations.
func (s *secretUseCaseWithMetrics) List(ctx context.Context, tags []string) ([]*secretsDomain.Secret, error) {
	start := time.Now()
	secrets, err := s.next.List(ctx, tags)
	s.record(ctx, "secret_list", start, err)
	return secrets, err
}

// RotateMasterKey records metrics for master key rotation operations.
func (s *secretUseCaseWithMetrics) RotateMasterKey(ctx context.Context, newPassword string) error {
	start := time.Now()
	err := s.next.RotateMasterKey(ctx, newPassword)
	s.record(ctx, "master_key_rotate", start, err)
	return err
}

// Export records metrics for store export operations.
func (s *secretUseCaseWithMetrics) Export(ctx context.Context) (*secretsDomain.ExportBlob, error) {
	start := time.Now()
	blob, err := s.next.Export(ctx)
	s.record(ctx, "store_export", start, err)
	return blob, err
}

// Import records metrics for store import operations.
func (s *secretUseCaseWithMetrics) Import(ctx context.Context, blob *secretsDomain.ExportBlob) (int, error) {
	start := time.Now()
	count, err := s.next.Import(ctx, blob)
	s.record(ctx, "store_import", start, err)
	return count, err
}
