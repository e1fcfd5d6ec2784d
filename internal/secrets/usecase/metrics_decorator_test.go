package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMetrics captures recorded operations for assertions.
type recordingMetrics struct {
	mu         sync.Mutex
	operations []string
	statuses   []string
	durations  int
}

func (r *recordingMetrics) RecordOperation(_ context.Context, _, operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, operation)
	r.statuses = append(r.statuses, status)
}

func (r *recordingMetrics) RecordDuration(_ context.Context, _, _ string, _ time.Duration, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

func TestSecretUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsOperationAndDuration", func(t *testing.T) {
		v := newTestVault(t)
		rec := &recordingMetrics{}
		decorated := NewSecretUseCaseWithMetrics(v.useCase, rec)

		_, err := decorated.Store(ctx, "metered", []byte("v"), StoreOptions{})
		require.NoError(t, err)
		_, err = decorated.Get(ctx, "metered", "alice")
		require.NoError(t, err)

		assert.Equal(t, []string{"secret_store", "secret_get"}, rec.operations)
		assert.Equal(t, []string{"success", "success"}, rec.statuses)
		assert.Equal(t, 2, rec.durations)
	})

	t.Run("Error_RecordsErrorStatus", func(t *testing.T) {
		v := newTestVault(t)
		rec := &recordingMetrics{}
		decorated := NewSecretUseCaseWithMetrics(v.useCase, rec)

		_, err := decorated.Store(ctx, "invalid name!", []byte("v"), StoreOptions{})
		require.Error(t, err)

		assert.Equal(t, []string{"secret_store"}, rec.operations)
		assert.Equal(t, []string{"error"}, rec.statuses)
	})
}
