package app

import (
	userRepository "github.com/allisson/localvault/internal/user/repository"
	userService "github.com/allisson/localvault/internal/user/service"
	userUsecase "github.com/allisson/localvault/internal/user/usecase"
)

// UserRepository returns the user and session repository.
func (c *Container) UserRepository() userUsecase.UserRepository {
	c.userRepoInit.Do(func() {
		c.userRepo = userRepository.NewFileUserRepository(c.config.StorePath)
	})
	return c.userRepo
}

// UserUseCase returns the user and session use case.
func (c *Container) UserUseCase() (userUsecase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

func (c *Container) initUserUseCase() (userUsecase.UserUseCase, error) {
	secrets, err := c.SecretUseCase()
	if err != nil {
		return nil, err
	}

	return userUsecase.NewUserUseCase(
		c.UserRepository(),
		secrets,
		c.RBACUseCase(),
		userService.NewPasswordService(),
		userService.NewTokenService(),
		c.Logger(),
		userUsecase.Options{
			SessionTTL:         c.config.SessionExpiration,
			SessionCap:         c.config.SessionMaxPerUser,
			LockoutMaxAttempts: c.config.LockoutMaxAttempts,
			LockoutDuration:    c.config.LockoutDuration,
			RateLimitEnabled:   c.config.RateLimitLoginEnabled,
			RateLimitPerSec:    c.config.RateLimitLoginPerSec,
			RateLimitBurst:     c.config.RateLimitLoginBurst,
		},
	), nil
}
