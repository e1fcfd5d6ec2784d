package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/localvault/internal/config"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		StorePath:           t.TempDir(),
		KDFIterations:       100000,
		LogLevel:            "error",
		SessionExpiration:   8 * time.Hour,
		SessionMaxPerUser:   3,
		LockoutMaxAttempts:  5,
		LockoutDuration:     30 * time.Minute,
		RotationParallelism: 2,
		MetricsEnabled:      true,
		MetricsNamespace:    "localvault",
	}
}

func TestContainer_Singletons(t *testing.T) {
	container := NewContainer(testConfig(t))

	assert.Same(t, container.Logger(), container.Logger())
	assert.Same(t, container.MasterKey(), container.MasterKey())
	assert.Equal(t, container.Envelope(), container.Envelope())

	secrets1, err := container.SecretUseCase()
	require.NoError(t, err)
	secrets2, err := container.SecretUseCase()
	require.NoError(t, err)
	assert.Same(t, secrets1, secrets2)

	authz1, err := container.AuthorizationUseCase()
	require.NoError(t, err)
	authz2, err := container.AuthorizationUseCase()
	require.NoError(t, err)
	assert.Same(t, authz1, authz2)
}

func TestContainer_Bootstrap(t *testing.T) {
	ctx := context.Background()
	container := NewContainer(testConfig(t))

	require.NoError(t, container.Bootstrap(ctx))
	assert.True(t, container.MasterKey().Loaded())

	secrets, err := container.SecretUseCase()
	require.NoError(t, err)
	_, err = secrets.Store(ctx, "bootstrap-check", []byte("v"), secretsUsecase.StoreOptions{})
	require.NoError(t, err)

	require.NoError(t, container.Shutdown(ctx))
	assert.False(t, container.MasterKey().Loaded())
}

func TestContainer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsEnabled = false
	container := NewContainer(cfg)

	provider, err := container.MetricsProvider()
	require.NoError(t, err)
	assert.Nil(t, provider)

	business, err := container.BusinessMetrics()
	require.NoError(t, err)
	assert.NotNil(t, business)
}
