package app

import (
	rbacRepository "github.com/allisson/localvault/internal/rbac/repository"
	rbacUsecase "github.com/allisson/localvault/internal/rbac/usecase"
)

// RBACRepository returns the access control graph repository.
func (c *Container) RBACRepository() rbacUsecase.RBACRepository {
	c.rbacRepoInit.Do(func() {
		c.rbacRepo = rbacRepository.NewFileRBACRepository(c.config.StorePath)
	})
	return c.rbacRepo
}

// RBACUseCase returns the permission and role graph use case.
func (c *Container) RBACUseCase() rbacUsecase.RBACUseCase {
	c.rbacUseCaseInit.Do(func() {
		c.rbacUseCase = rbacUsecase.NewRBACUseCase(c.RBACRepository())
	})
	return c.rbacUseCase
}
