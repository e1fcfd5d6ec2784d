// Package app provides the dependency injection container assembling the vault
// components.
package app

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/localvault/internal/audit"
	authzUsecase "github.com/allisson/localvault/internal/authz/usecase"
	"github.com/allisson/localvault/internal/config"
	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	cryptoService "github.com/allisson/localvault/internal/crypto/service"
	"github.com/allisson/localvault/internal/metrics"
	rbacUsecase "github.com/allisson/localvault/internal/rbac/usecase"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
	userUsecase "github.com/allisson/localvault/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	auditSigner     *audit.Signer
	auditRecorder   audit.Recorder

	// Crypto
	masterKey     *cryptoDomain.MasterKey
	envelope      cryptoService.Envelope
	kmsService    cryptoService.KMSService
	kmsKeeper     cryptoService.KMSKeeper
	masterKeyRepo secretsUsecase.MasterKeyRepository

	// Repositories
	secretRepo secretsUsecase.SecretRepository
	rbacRepo   rbacUsecase.RBACRepository
	userRepo   userUsecase.UserRepository

	// Use Cases
	secretUseCase secretsUsecase.SecretUseCase
	rbacUseCase   rbacUsecase.RBACUseCase
	userUseCase   userUsecase.UserUseCase
	authzUseCase  authzUsecase.AuthorizationUseCase

	// Initialization flags for thread-safety
	loggerInit          sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	auditSignerInit     sync.Once
	auditRecorderInit   sync.Once
	masterKeyInit       sync.Once
	envelopeInit        sync.Once
	kmsServiceInit      sync.Once
	kmsKeeperInit       sync.Once
	masterKeyRepoInit   sync.Once
	secretRepoInit      sync.Once
	rbacRepoInit        sync.Once
	userRepoInit        sync.Once
	secretUseCaseInit   sync.Once
	rbacUseCaseInit     sync.Once
	userUseCaseInit     sync.Once
	authzUseCaseInit    sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the metrics provider. Nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder, a no-op when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// AuditSigner returns the audit entry signer.
func (c *Container) AuditSigner() *audit.Signer {
	c.auditSignerInit.Do(func() {
		c.auditSigner = audit.NewSigner()
	})
	return c.auditSigner
}

// AuditRecorder returns the audit trail recorder. Entries are signed with a
// key derived from the master key once it is loaded.
func (c *Container) AuditRecorder() audit.Recorder {
	c.auditRecorderInit.Do(func() {
		masterKey := c.MasterKey()
		c.auditRecorder = audit.NewFileRecorder(c.config.StorePath, c.AuditSigner(), func() []byte {
			if !masterKey.Loaded() {
				return nil
			}
			return masterKey.Bytes()
		})
	})
	return c.auditRecorder
}

// Bootstrap brings the vault up: loads or generates the master key, loads the
// secret index, the access control graph, and the user and session state.
// Fatal when the store directory is unwritable or the master key cannot load.
func (c *Container) Bootstrap(ctx context.Context) error {
	secrets, err := c.SecretUseCase()
	if err != nil {
		return err
	}
	if err := secrets.Initialize(ctx); err != nil {
		return err
	}
	if err := c.RBACUseCase().Initialize(ctx); err != nil {
		return err
	}
	users, err := c.UserUseCase()
	if err != nil {
		return err
	}
	return users.Initialize(ctx)
}

// Shutdown releases container resources: flushes metrics, closes the KMS
// keeper, and zeroes the master key.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if c.kmsKeeper != nil {
		if err := c.kmsKeeper.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.masterKey != nil {
		c.masterKey.Close()
	}
	return firstErr
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initBusinessMetrics builds the operation metrics recorder from the provider.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}
