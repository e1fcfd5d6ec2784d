package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/localvault/internal/audit"
	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	cryptoRepository "github.com/allisson/localvault/internal/crypto/repository"
	cryptoService "github.com/allisson/localvault/internal/crypto/service"
	apperrors "github.com/allisson/localvault/internal/errors"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
	secretsRepository "github.com/allisson/localvault/internal/secrets/repository"
)

const testIterations = cryptoDomain.MinKDFIterations

type testVault struct {
	dir       string
	useCase   SecretUseCase
	masterKey *cryptoDomain.MasterKey
	keyRepo   *cryptoRepository.MasterKeyFile
}

// newTestVault builds an initialized use case over a temp directory with real
// filesystem, crypto, and audit components.
func newTestVault(t *testing.T) *testVault {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	masterKey := cryptoDomain.NewMasterKeyHolder()
	envelope := cryptoService.NewEnvelope(testIterations)
	secretRepo := secretsRepository.NewFilesystemSecretRepository(dir, logger)
	keyRepo := cryptoRepository.NewMasterKeyFile(dir, "", nil, testIterations)
	recorder := audit.NewFileRecorder(dir, audit.NewSigner(), masterKey.Bytes)

	uc := NewSecretUseCase(secretRepo, keyRepo, envelope, recorder, logger, masterKey, 2)
	require.NoError(t, uc.Initialize(context.Background()))

	return &testVault{dir: dir, useCase: uc, masterKey: masterKey, keyRepo: keyRepo}
}

// readAccessLog parses every line of the access audit log.
func readAccessLog(t *testing.T, dir string) []audit.AccessEntry {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, audit.AccessLogFileName))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var entries []audit.AccessEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry audit.AccessEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestSecretUseCase_StoreAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		v := newTestVault(t)

		stored, err := v.useCase.Store(ctx, "api-key", []byte("sk-123"), StoreOptions{
			Description: "payment provider key",
			Tags:        []string{"prod", "payments"},
		})
		require.NoError(t, err)
		assert.Equal(t, "api-key", stored.Name)
		assert.Nil(t, stored.Ciphertext, "Store must not return ciphertext")
		assert.Equal(t, cryptoDomain.AESGCM, stored.Algorithm)
		assert.Equal(t, testIterations, stored.KeyDerivation.Iterations)

		value, err := v.useCase.Get(ctx, "api-key", "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("sk-123"), value)
	})

	t.Run("Success_EmptyValueRoundTrip", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "empty", []byte{}, StoreOptions{})
		require.NoError(t, err)

		// A stored empty value reads back as a non-nil empty slice, keeping it
		// distinguishable from an absent secret.
		value, err := v.useCase.Get(ctx, "empty", "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte{}, value)
	})

	t.Run("Success_GetAbsentReturnsNil", func(t *testing.T) {
		v := newTestVault(t)

		value, err := v.useCase.Get(ctx, "missing", "alice")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("Success_GetBumpsAccessMetadata", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "counted", []byte("v"), StoreOptions{})
		require.NoError(t, err)

		for range 3 {
			_, err := v.useCase.Get(ctx, "counted", "alice")
			require.NoError(t, err)
		}

		secrets, err := v.useCase.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, secrets, 1)
		assert.Equal(t, uint64(3), secrets[0].Metadata.AccessCount)
		require.NotNil(t, secrets[0].Metadata.LastAccessed)
	})

	t.Run("Success_ExpiredSecretReportedAbsent", func(t *testing.T) {
		v := newTestVault(t)

		past := time.Now().UTC().Add(-time.Minute)
		_, err := v.useCase.Store(ctx, "expired", []byte("old"), StoreOptions{ExpiresAt: &past})
		require.NoError(t, err)

		value, err := v.useCase.Get(ctx, "expired", "alice")
		require.NoError(t, err)
		assert.Nil(t, value)

		// The entry stays on disk even though reads report it absent.
		_, err = os.Stat(filepath.Join(v.dir, "expired.json"))
		assert.NoError(t, err)
	})

	t.Run("Error_InvalidName", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "../escape", []byte("v"), StoreOptions{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = v.useCase.Get(ctx, "bad name", "alice")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_EmptyName", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "", []byte("v"), StoreOptions{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		// Nothing persisted: an empty name would produce an orphan ".json"
		// file that LoadAll cannot map back to a secret.
		_, statErr := os.Stat(filepath.Join(v.dir, ".json"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Error_TamperedCiphertext", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "tampered", []byte("value"), StoreOptions{})
		require.NoError(t, err)

		// Flip one ciphertext bit directly in the persisted file, then force a
		// reload so the index picks up the tampered envelope.
		path := filepath.Join(v.dir, "tampered.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var onDisk secretsDomain.Secret
		require.NoError(t, json.Unmarshal(data, &onDisk))
		onDisk.Ciphertext[0] ^= 0xff
		data, err = json.Marshal(&onDisk)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		v2 := v.reopen(t)
		value, err := v2.Get(ctx, "tampered", "alice")
		require.NoError(t, err)
		assert.Nil(t, value, "tampered secret is skipped at load and reads as absent")
	})
}

// reopen builds a fresh use case over the same directory, reloading from disk.
func (v *testVault) reopen(t *testing.T) SecretUseCase {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	masterKey := cryptoDomain.NewMasterKeyHolder()
	envelope := cryptoService.NewEnvelope(testIterations)
	secretRepo := secretsRepository.NewFilesystemSecretRepository(v.dir, logger)
	keyRepo := cryptoRepository.NewMasterKeyFile(v.dir, "", nil, testIterations)
	recorder := audit.NewFileRecorder(v.dir, audit.NewSigner(), masterKey.Bytes)

	uc := NewSecretUseCase(secretRepo, keyRepo, envelope, recorder, logger, masterKey, 2)
	require.NoError(t, uc.Initialize(context.Background()))
	return uc
}

func TestSecretUseCase_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FreshEnvelopePreservesCreatedAt", func(t *testing.T) {
		v := newTestVault(t)

		first, err := v.useCase.Store(ctx, "rotating", []byte("v1"), StoreOptions{})
		require.NoError(t, err)

		firstFile := readSecretFile(t, v.dir, "rotating")

		updated, err := v.useCase.Update(ctx, "rotating", []byte("v2"), StoreOptions{Description: "second"})
		require.NoError(t, err)
		assert.Equal(t, first.Metadata.CreatedAt, updated.Metadata.CreatedAt)

		secondFile := readSecretFile(t, v.dir, "rotating")
		assert.NotEqual(t, firstFile.IV, secondFile.IV)
		assert.NotEqual(t, firstFile.Salt, secondFile.Salt)

		value, err := v.useCase.Get(ctx, "rotating", "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), value)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Update(ctx, "missing", []byte("v"), StoreOptions{})
		assert.ErrorIs(t, err, secretsDomain.ErrSecretNotFound)
	})
}

func readSecretFile(t *testing.T, dir, name string) *secretsDomain.Secret {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name+".json"))
	require.NoError(t, err)
	var secret secretsDomain.Secret
	require.NoError(t, json.Unmarshal(data, &secret))
	return &secret
}

func TestSecretUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ExistingThenIdempotent", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "doomed", []byte("v"), StoreOptions{})
		require.NoError(t, err)

		existed, err := v.useCase.Delete(ctx, "doomed")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = v.useCase.Delete(ctx, "doomed")
		require.NoError(t, err)
		assert.False(t, existed)

		value, err := v.useCase.Get(ctx, "doomed", "alice")
		require.NoError(t, err)
		assert.Nil(t, value)
	})
}

func TestSecretUseCase_List(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SortedMetadataOnly", func(t *testing.T) {
		v := newTestVault(t)

		for _, name := range []string{"zeta", "alpha", "mid"} {
			_, err := v.useCase.Store(ctx, name, []byte("v"), StoreOptions{})
			require.NoError(t, err)
		}

		secrets, err := v.useCase.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, secrets, 3)
		assert.Equal(t, "alpha", secrets[0].Name)
		assert.Equal(t, "mid", secrets[1].Name)
		assert.Equal(t, "zeta", secrets[2].Name)
		for _, secret := range secrets {
			assert.Nil(t, secret.Ciphertext)
			assert.Nil(t, secret.Plaintext)
		}
	})

	t.Run("Success_TagFilterRequiresAllTags", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "both", []byte("v"), StoreOptions{Tags: []string{"prod", "db"}})
		require.NoError(t, err)
		_, err = v.useCase.Store(ctx, "only-prod", []byte("v"), StoreOptions{Tags: []string{"prod"}})
		require.NoError(t, err)

		secrets, err := v.useCase.List(ctx, []string{"prod", "db"})
		require.NoError(t, err)
		require.Len(t, secrets, 1)
		assert.Equal(t, "both", secrets[0].Name)
	})
}

func TestSecretUseCase_RotateMasterKey(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ValuesSurviveAndOldKeyRetired", func(t *testing.T) {
		v := newTestVault(t)

		values := map[string][]byte{
			"api-key": []byte("sk-123"),
			"db-pass": []byte("hunter2"),
			"token":   []byte("t0k3n"),
		}
		for name, value := range values {
			_, err := v.useCase.Store(ctx, name, value, StoreOptions{})
			require.NoError(t, err)
		}

		oldKey := v.masterKey.Bytes()
		oldFiles := map[string]*secretsDomain.Secret{}
		for name := range values {
			oldFiles[name] = readSecretFile(t, v.dir, name)
		}

		require.NoError(t, v.useCase.RotateMasterKey(ctx, ""))

		// Every value still decrypts through the live store.
		for name, want := range values {
			got, err := v.useCase.Get(ctx, name, "rotator")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		// Every envelope on disk changed and no longer opens under the old key.
		envelope := cryptoService.NewEnvelope(testIterations)
		oldMK, err := cryptoDomain.MasterKeyFromBytes(oldKey)
		require.NoError(t, err)
		defer oldMK.Close()
		for name := range values {
			fresh := readSecretFile(t, v.dir, name)
			assert.NotEqual(t, oldFiles[name].Ciphertext, fresh.Ciphertext)
			_, err := envelope.Decrypt(fresh.Envelope(), oldMK)
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		}

		// The prior key file is archived alongside the new one.
		backups, err := filepath.Glob(filepath.Join(v.dir, cryptoRepository.MasterKeyFileName+".bak-*"))
		require.NoError(t, err)
		assert.Len(t, backups, 1)
	})

	t.Run("Success_ReopenAfterRotation", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "persistent", []byte("survives"), StoreOptions{})
		require.NoError(t, err)
		require.NoError(t, v.useCase.RotateMasterKey(ctx, ""))

		reopened := v.reopen(t)
		value, err := reopened.Get(ctx, "persistent", "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("survives"), value)
	})

	t.Run("Success_EmptyStore", func(t *testing.T) {
		v := newTestVault(t)
		assert.NoError(t, v.useCase.RotateMasterKey(ctx, ""))
	})
}

func TestSecretUseCase_ExportImport(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTripIntoFreshStore", func(t *testing.T) {
		source := newTestVault(t)

		_, err := source.useCase.Store(ctx, "exported", []byte("payload"), StoreOptions{Tags: []string{"backup"}})
		require.NoError(t, err)

		blob, err := source.useCase.Export(ctx)
		require.NoError(t, err)
		assert.Equal(t, secretsDomain.ExportVersion, blob.Version)
		require.Len(t, blob.Secrets, 1)
		assert.Nil(t, blob.Secrets[0].Plaintext)
		assert.NotEmpty(t, blob.Secrets[0].Ciphertext)

		// Import into a second store sharing the same master key.
		dir := t.TempDir()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		masterKey := cryptoDomain.NewMasterKeyHolder()
		require.NoError(t, masterKey.Replace(source.masterKey.Bytes()))
		envelope := cryptoService.NewEnvelope(testIterations)
		secretRepo := secretsRepository.NewFilesystemSecretRepository(dir, logger)
		keyRepo := cryptoRepository.NewMasterKeyFile(dir, "", nil, testIterations)
		require.NoError(t, keyRepo.Save(ctx, masterKey))
		recorder := audit.NewFileRecorder(dir, audit.NewSigner(), masterKey.Bytes)
		target := NewSecretUseCase(secretRepo, keyRepo, envelope, recorder, logger, masterKey, 2)
		require.NoError(t, target.Initialize(ctx))

		count, err := target.Import(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		value, err := target.Get(ctx, "exported", "restorer")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), value)
	})

	t.Run("Error_UnsupportedVersion", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Import(ctx, &secretsDomain.ExportBlob{Version: "2.0"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Success_ImportOverwritesCollision", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "name", []byte("original"), StoreOptions{})
		require.NoError(t, err)
		blob, err := v.useCase.Export(ctx)
		require.NoError(t, err)

		_, err = v.useCase.Update(ctx, "name", []byte("changed"), StoreOptions{})
		require.NoError(t, err)

		count, err := v.useCase.Import(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		value, err := v.useCase.Get(ctx, "name", "restorer")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), value)
	})
}

func TestSecretUseCase_AuditTrail(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EveryGetAttemptRecorded", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "logged", []byte("v"), StoreOptions{})
		require.NoError(t, err)

		_, err = v.useCase.Get(ctx, "logged", "alice")
		require.NoError(t, err)
		_, err = v.useCase.Get(ctx, "absent", "bob")
		require.NoError(t, err)

		entries := readAccessLog(t, v.dir)
		require.Len(t, entries, 2)

		assert.Equal(t, "logged", entries[0].Secret)
		assert.Equal(t, "alice", entries[0].User)
		assert.True(t, entries[0].Success)
		assert.NotEmpty(t, entries[0].Signature)

		assert.Equal(t, "absent", entries[1].Secret)
		assert.Equal(t, "bob", entries[1].User)
		assert.False(t, entries[1].Success)
	})

	t.Run("Success_SignaturesVerifyUnderMasterKey", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Store(ctx, "signed", []byte("v"), StoreOptions{})
		require.NoError(t, err)
		_, err = v.useCase.Get(ctx, "signed", "alice")
		require.NoError(t, err)

		signer := audit.NewSigner()
		key := v.masterKey.Bytes()
		for _, entry := range readAccessLog(t, v.dir) {
			require.NoError(t, signer.VerifyAccess(key, &entry))
		}
	})
}

func TestSecretUseCase_NotInitialized(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	masterKey := cryptoDomain.NewMasterKeyHolder()
	uc := NewSecretUseCase(
		secretsRepository.NewFilesystemSecretRepository(dir, logger),
		cryptoRepository.NewMasterKeyFile(dir, "", nil, testIterations),
		cryptoService.NewEnvelope(testIterations),
		audit.NewFileRecorder(dir, audit.NewSigner(), masterKey.Bytes),
		logger,
		masterKey,
		2,
	)

	_, err := uc.Store(ctx, "name", []byte("v"), StoreOptions{})
	assert.ErrorIs(t, err, secretsDomain.ErrStoreNotInitialized)
	_, err = uc.Get(ctx, "name", "alice")
	assert.ErrorIs(t, err, secretsDomain.ErrStoreNotInitialized)
	err = uc.RotateMasterKey(ctx, "")
	assert.ErrorIs(t, err, secretsDomain.ErrStoreNotInitialized)
}

func TestSecretUseCase_InitializeWrongKey(t *testing.T) {
	ctx := context.Background()

	v := newTestVault(t)
	_, err := v.useCase.Store(ctx, "locked", []byte("v"), StoreOptions{})
	require.NoError(t, err)

	// Replace the persisted key file with a different key: every stored secret
	// now fails to decrypt, which reads as a wrong master password.
	wrong, err := cryptoDomain.NewMasterKey()
	require.NoError(t, err)
	defer wrong.Close()
	require.NoError(t, v.keyRepo.Save(ctx, wrong))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	masterKey := cryptoDomain.NewMasterKeyHolder()
	uc := NewSecretUseCase(
		secretsRepository.NewFilesystemSecretRepository(v.dir, logger),
		cryptoRepository.NewMasterKeyFile(v.dir, "", nil, testIterations),
		cryptoService.NewEnvelope(testIterations),
		audit.NewFileRecorder(v.dir, audit.NewSigner(), masterKey.Bytes),
		logger,
		masterKey,
		2,
	)
	err = uc.Initialize(ctx)
	assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyUnavailable)
}

func TestSecretUseCase_ConcurrentDistinctNames(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	const workers = 32
	var wg sync.WaitGroup

	// Stores, reads, and lists on distinct names race only on the shared index.
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("secret-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := v.useCase.Store(ctx, name, []byte("value-"+name), StoreOptions{})
			assert.NoError(t, err)

			value, err := v.useCase.Get(ctx, name, "alice")
			assert.NoError(t, err)
			assert.Equal(t, []byte("value-"+name), value)

			_, err = v.useCase.List(ctx, nil)
			assert.NoError(t, err)
		}()
	}

	// Deletes on a disjoint name range run alongside the stores.
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("victim-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := v.useCase.Store(ctx, name, []byte("v"), StoreOptions{})
			assert.NoError(t, err)

			existed, err := v.useCase.Delete(ctx, name)
			assert.NoError(t, err)
			assert.True(t, existed)
		}()
	}

	wg.Wait()

	secrets, err := v.useCase.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, secrets, workers)
}
