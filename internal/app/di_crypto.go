package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	cryptoRepository "github.com/allisson/localvault/internal/crypto/repository"
	cryptoService "github.com/allisson/localvault/internal/crypto/service"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
)

// MasterKey returns the shared master key holder. It starts empty and is
// filled by the secret store's Initialize.
func (c *Container) MasterKey() *cryptoDomain.MasterKey {
	c.masterKeyInit.Do(func() {
		c.masterKey = cryptoDomain.NewMasterKeyHolder()
	})
	return c.masterKey
}

// Envelope returns the AES-256-GCM envelope service with the configured PBKDF2
// iteration count.
func (c *Container) Envelope() cryptoService.Envelope {
	c.envelopeInit.Do(func() {
		c.envelope = cryptoService.NewEnvelope(c.config.KDFIterations)
	})
	return c.envelope
}

// KMSService returns the KMS service for master key wrapping.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// KMSKeeper returns the opened KMS keeper, or nil when no KMS key URI is
// configured.
func (c *Container) KMSKeeper() (cryptoService.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		if c.config.KMSKeyURI == "" {
			return
		}
		c.kmsKeeper, err = c.KMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["kmsKeeper"] = fmt.Errorf("failed to open kms keeper: %w", err)
		}
	})
	if err != nil {
		return nil, c.initErrors["kmsKeeper"]
	}
	if storedErr, exists := c.initErrors["kmsKeeper"]; exists {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// MasterKeyRepository returns the master key file repository, wrapping with
// KMS when configured, otherwise with the master key password when set, and
// raw hex in dev mode.
func (c *Container) MasterKeyRepository() (secretsUsecase.MasterKeyRepository, error) {
	var err error
	c.masterKeyRepoInit.Do(func() {
		var keeper cryptoService.KMSKeeper
		keeper, err = c.KMSKeeper()
		if err != nil {
			c.initErrors["masterKeyRepo"] = err
			return
		}
		c.masterKeyRepo = cryptoRepository.NewMasterKeyFile(
			c.config.StorePath,
			c.config.MasterKeyPassword,
			keeper,
			c.config.KDFIterations,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.masterKeyRepo, nil
}
