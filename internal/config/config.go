// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// StorePath is the directory holding encrypted secrets, key material, and state files.
	StorePath string

	// MasterKeyPassword wraps the master key file when set. When empty and no KMS is
	// configured, the master key is persisted raw (dev mode).
	MasterKeyPassword string

	// KMSProvider is the KMS provider used to wrap the master key (e.g., "hashivault", "localsecrets").
	KMSProvider string
	// KMSKeyURI is the URI for the wrapping key in the KMS (e.g., "base64key://...").
	KMSKeyURI string

	// KDFIterations is the PBKDF2 iteration count for per-secret key derivation.
	// Values below 100000 are raised to 100000.
	KDFIterations int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// SessionExpiration is the duration after which an authentication session expires.
	SessionExpiration time.Duration
	// SessionMaxPerUser caps concurrent sessions per user; oldest sessions are evicted.
	SessionMaxPerUser int

	// LockoutMaxAttempts is the maximum number of failed login attempts before a lockout.
	LockoutMaxAttempts int
	// LockoutDuration is the duration for which an account is locked out after maximum attempts.
	LockoutDuration time.Duration

	// RateLimitLoginEnabled indicates whether IP-based login rate limiting is enabled.
	RateLimitLoginEnabled bool
	// RateLimitLoginPerSec is the number of login attempts allowed per second per IP.
	RateLimitLoginPerSec float64
	// RateLimitLoginBurst is the burst size for login rate limiting.
	RateLimitLoginBurst int

	// RotationParallelism bounds concurrent re-encryption workers during master key rotation.
	RotationParallelism int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Storage
		StorePath: env.GetString("STORE_PATH", defaultStorePath()),

		// Master key protection
		MasterKeyPassword: env.GetString("MASTER_KEY_PASSWORD", ""),
		KMSProvider:       env.GetString("KMS_PROVIDER", ""),
		KMSKeyURI:         env.GetString("KMS_KEY_URI", ""),

		// Key derivation
		KDFIterations: env.GetInt("KDF_ITERATIONS", 100000),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Sessions
		SessionExpiration: env.GetDuration("SESSION_EXPIRATION_SECONDS", 28800, time.Second),
		SessionMaxPerUser: env.GetInt("SESSION_MAX_PER_USER", 3),

		// Lockout
		LockoutMaxAttempts: env.GetInt("LOCKOUT_MAX_ATTEMPTS", 5),
		LockoutDuration:    env.GetDuration("LOCKOUT_DURATION_SECONDS", 1800, time.Second),

		// Login rate limiting (IP-based)
		RateLimitLoginEnabled: env.GetBool("RATE_LIMIT_LOGIN_ENABLED", true),
		RateLimitLoginPerSec:  env.GetFloat64("RATE_LIMIT_LOGIN_PER_SEC", 5.0),
		RateLimitLoginBurst:   env.GetInt("RATE_LIMIT_LOGIN_BURST", 10),

		// Rotation
		RotationParallelism: env.GetInt("ROTATION_PARALLELISM", 4),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "localvault"),
	}
}

// defaultStorePath returns the per-user default store directory.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".localvault"
	}
	return filepath.Join(home, ".localvault")
}

// loadDotEnv searches for a .env file starting from the current directory
// and walking up the tree until one is found or the root is reached.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
