package app

import (
	authzUsecase "github.com/allisson/localvault/internal/authz/usecase"
)

// AuthorizationUseCase returns the authorization engine, instrumented with
// metrics when enabled.
func (c *Container) AuthorizationUseCase() (authzUsecase.AuthorizationUseCase, error) {
	var err error
	c.authzUseCaseInit.Do(func() {
		c.authzUseCase, err = c.initAuthorizationUseCase()
		if err != nil {
			c.initErrors["authzUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authzUseCase"]; exists {
		return nil, storedErr
	}
	return c.authzUseCase, nil
}

func (c *Container) initAuthorizationUseCase() (authzUsecase.AuthorizationUseCase, error) {
	users, err := c.UserUseCase()
	if err != nil {
		return nil, err
	}
	business, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := authzUsecase.NewAuthorizationUseCase(
		users,
		c.RBACUseCase(),
		c.AuditRecorder(),
		c.Logger(),
	)
	return authzUsecase.NewAuthorizationUseCaseWithMetrics(useCase, business), nil
}
