package app

import (
	secretsRepository "github.com/allisson/localvault/internal/secrets/repository"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
)

// SecretRepository returns the filesystem secret repository.
func (c *Container) SecretRepository() secretsUsecase.SecretRepository {
	c.secretRepoInit.Do(func() {
		c.secretRepo = secretsRepository.NewFilesystemSecretRepository(c.config.StorePath, c.Logger())
	})
	return c.secretRepo
}

// SecretUseCase returns the secret store use case, instrumented with metrics
// when enabled.
func (c *Container) SecretUseCase() (secretsUsecase.SecretUseCase, error) {
	var err error
	c.secretUseCaseInit.Do(func() {
		c.secretUseCase, err = c.initSecretUseCase()
		if err != nil {
			c.initErrors["secretUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretUseCase"]; exists {
		return nil, storedErr
	}
	return c.secretUseCase, nil
}

func (c *Container) initSecretUseCase() (secretsUsecase.SecretUseCase, error) {
	keyRepo, err := c.MasterKeyRepository()
	if err != nil {
		return nil, err
	}
	business, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := secretsUsecase.NewSecretUseCase(
		c.SecretRepository(),
		keyRepo,
		c.Envelope(),
		c.AuditRecorder(),
		c.Logger(),
		c.MasterKey(),
		c.config.RotationParallelism,
	)
	return secretsUsecase.NewSecretUseCaseWithMetrics(useCase, business), nil
}
