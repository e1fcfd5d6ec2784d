package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	// Ensure a clean environment for the keys under test.
	keys := []string{
		"STORE_PATH", "MASTER_KEY_PASSWORD", "KMS_PROVIDER", "KMS_KEY_URI",
		"KDF_ITERATIONS", "LOG_LEVEL", "SESSION_EXPIRATION_SECONDS",
		"SESSION_MAX_PER_USER", "LOCKOUT_MAX_ATTEMPTS", "LOCKOUT_DURATION_SECONDS",
		"RATE_LIMIT_LOGIN_ENABLED", "METRICS_ENABLED", "METRICS_NAMESPACE",
	}
	for _, k := range keys {
		t.Setenv(k, "") // register cleanup, then clear
		_ = os.Unsetenv(k)
	}

	cfg := Load()

	assert.NotEmpty(t, cfg.StorePath)
	assert.Equal(t, 100000, cfg.KDFIterations)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8*time.Hour, cfg.SessionExpiration)
	assert.Equal(t, 3, cfg.SessionMaxPerUser)
	assert.Equal(t, 5, cfg.LockoutMaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 4, cfg.RotationParallelism)
	assert.Equal(t, "localvault", cfg.MetricsNamespace)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/vault-test")
	t.Setenv("KDF_ITERATIONS", "250000")
	t.Setenv("SESSION_EXPIRATION_SECONDS", "3600")
	t.Setenv("SESSION_MAX_PER_USER", "1")
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KMS_PROVIDER", "localsecrets")
	t.Setenv("KMS_KEY_URI", "base64key://")

	cfg := Load()

	assert.Equal(t, "/tmp/vault-test", cfg.StorePath)
	assert.Equal(t, 250000, cfg.KDFIterations)
	assert.Equal(t, time.Hour, cfg.SessionExpiration)
	assert.Equal(t, 1, cfg.SessionMaxPerUser)
	assert.Equal(t, 3, cfg.LockoutMaxAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localsecrets", cfg.KMSProvider)
	assert.Equal(t, "base64key://", cfg.KMSKeyURI)
}
