package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
	secretsUsecase "github.com/allisson/localvault/internal/secrets/usecase"
)

// RunInit initializes the vault: creates the store directory, generates or
// loads the master key, and loads persisted state.
func RunInit(ctx context.Context, useCase secretsUsecase.SecretUseCase, logger *slog.Logger, w io.Writer) error {
	if err := useCase.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	fmt.Fprintln(w, "vault initialized")
	logger.Info("vault initialized")
	return nil
}

// readValue returns the secret value from the flag when given, otherwise reads
// one line from the reader so values stay out of shell history.
func readValue(value string, ioTuple IOTuple) ([]byte, error) {
	if value != "" {
		return []byte(value), nil
	}
	fmt.Fprint(ioTuple.Writer, "value: ")
	scanner := bufio.NewScanner(ioTuple.Reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read value: %w", err)
		}
		return nil, fmt.Errorf("no value provided")
	}
	return []byte(strings.TrimSpace(scanner.Text())), nil
}

// parseExpiry parses an optional RFC 3339 expiry timestamp.
func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid expires-at (want RFC 3339): %w", err)
	}
	return &parsed, nil
}

// RunStore encrypts and stores a secret.
func RunStore(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	logger *slog.Logger,
	ioTuple IOTuple,
	name, value, description, tags, expiresAt string,
) error {
	plaintext, err := readValue(value, ioTuple)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(plaintext)

	expiry, err := parseExpiry(expiresAt)
	if err != nil {
		return err
	}

	secret, err := useCase.Store(ctx, name, plaintext, secretsUsecase.StoreOptions{
		Description: description,
		Tags:        splitTags(tags),
		ExpiresAt:   expiry,
	})
	if err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	fmt.Fprintf(ioTuple.Writer, "stored secret %q\n", secret.Name)
	logger.Info("secret stored", slog.String("secret", secret.Name))
	return nil
}

// RunGet retrieves and prints a secret value. Absent or expired secrets print
// nothing and exit zero, matching the subsystem's null semantics.
func RunGet(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	w io.Writer,
	name, userID string,
) error {
	value, err := useCase.Get(ctx, name, userID)
	if err != nil {
		return fmt.Errorf("failed to get secret: %w", err)
	}
	if value == nil {
		return nil
	}
	defer cryptoDomain.Zero(value)

	fmt.Fprintln(w, string(value))
	return nil
}

// RunUpdate re-encrypts an existing secret with a new value.
func RunUpdate(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	logger *slog.Logger,
	ioTuple IOTuple,
	name, value, description, tags, expiresAt string,
) error {
	plaintext, err := readValue(value, ioTuple)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(plaintext)

	expiry, err := parseExpiry(expiresAt)
	if err != nil {
		return err
	}

	secret, err := useCase.Update(ctx, name, plaintext, secretsUsecase.StoreOptions{
		Description: description,
		Tags:        splitTags(tags),
		ExpiresAt:   expiry,
	})
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}

	fmt.Fprintf(ioTuple.Writer, "updated secret %q\n", secret.Name)
	logger.Info("secret updated", slog.String("secret", secret.Name))
	return nil
}

// RunDelete removes a secret.
func RunDelete(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	logger *slog.Logger,
	w io.Writer,
	name string,
) error {
	existed, err := useCase.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	if existed {
		fmt.Fprintf(w, "deleted secret %q\n", name)
		logger.Info("secret deleted", slog.String("secret", name))
	} else {
		fmt.Fprintf(w, "secret %q not found\n", name)
	}
	return nil
}

// RunList prints secret metadata, optionally filtered by tags. Never values.
func RunList(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	w io.Writer,
	tags, format string,
) error {
	secrets, err := useCase.List(ctx, splitTags(tags))
	if err != nil {
		return fmt.Errorf("failed to list secrets: %w", err)
	}

	if format == "json" {
		outputJSON(secrets, w)
		return nil
	}
	if len(secrets) == 0 {
		fmt.Fprintln(w, "no secrets")
		return nil
	}
	for _, secret := range secrets {
		line := secret.Name
		if len(secret.Metadata.Tags) > 0 {
			line += " [" + strings.Join(secret.Metadata.Tags, ",") + "]"
		}
		if secret.Metadata.Description != "" {
			line += " - " + secret.Metadata.Description
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// RunRotateMasterKey re-encrypts every secret under a fresh master key.
func RunRotateMasterKey(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	logger *slog.Logger,
	w io.Writer,
	newPassword string,
) error {
	if err := useCase.RotateMasterKey(ctx, newPassword); err != nil {
		return fmt.Errorf("failed to rotate master key: %w", err)
	}
	fmt.Fprintln(w, "master key rotated")
	logger.Info("master key rotated")
	return nil
}

// RunExport writes the encrypted store as a JSON backup blob.
func RunExport(ctx context.Context, useCase secretsUsecase.SecretUseCase, w io.Writer) error {
	blob, err := useCase.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export store: %w", err)
	}
	outputJSON(blob, w)
	return nil
}

// RunImport loads secrets from an export blob read from the reader.
func RunImport(
	ctx context.Context,
	useCase secretsUsecase.SecretUseCase,
	logger *slog.Logger,
	ioTuple IOTuple,
) error {
	data, err := io.ReadAll(ioTuple.Reader)
	if err != nil {
		return fmt.Errorf("failed to read import data: %w", err)
	}

	var blob secretsDomain.ExportBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to parse import data: %w", err)
	}

	count, err := useCase.Import(ctx, &blob)
	if err != nil {
		return fmt.Errorf("failed to import secrets: %w", err)
	}

	fmt.Fprintf(ioTuple.Writer, "imported %d secrets\n", count)
	logger.Info("secrets imported", slog.Int("count", count))
	return nil
}
