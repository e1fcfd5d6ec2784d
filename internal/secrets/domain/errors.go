package domain

import (
	"github.com/allisson/localvault/internal/errors"
)

// Secret management errors.
var (
	// ErrSecretNotFound indicates a secret with the specified name was not found.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrStoreNotInitialized indicates an operation ran before Initialize.
	ErrStoreNotInitialized = errors.New("secret store not initialized")

	// ErrStoreUnwritable indicates the store directory cannot be written.
	// This is fatal at initialization time.
	ErrStoreUnwritable = errors.New("store directory is not writable")
)
