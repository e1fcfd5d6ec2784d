package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/localvault/internal/audit"
	cryptoDomain "github.com/allisson/localvault/internal/crypto/domain"
	cryptoService "github.com/allisson/localvault/internal/crypto/service"
	"github.com/allisson/localvault/internal/errors"
	secretsDomain "github.com/allisson/localvault/internal/secrets/domain"
	"github.com/allisson/localvault/internal/validation"
)

// secretUseCase implements SecretUseCase over filesystem persistence.
//
// Concurrency model: rotation takes the write side of mu, everything else the
// read side, so readers see either the fully-old or fully-new key world and
// never a mix. The index map and the metadata of indexed secrets are guarded
// by indexMu, since operations on different names run concurrently under mu's
// read side. Mutations to the same secret name additionally serialize on a
// per-name mutex because persistence is a read-modify-write over one file.
type secretUseCase struct {
	secretRepo          SecretRepository
	keyRepo             MasterKeyRepository
	envelope            cryptoService.Envelope
	recorder            audit.Recorder
	logger              *slog.Logger
	masterKey           *cryptoDomain.MasterKey
	rotationParallelism int

	mu          sync.RWMutex
	indexMu     sync.RWMutex
	nameMu      sync.Mutex
	nameLocks   map[string]*sync.Mutex
	index       map[string]*secretsDomain.Secret
	initialized bool
}

// NewSecretUseCase creates a secret use case instance with the provided
// dependencies. The masterKey holder starts empty and is filled by Initialize.
func NewSecretUseCase(
	secretRepo SecretRepository,
	keyRepo MasterKeyRepository,
	envelope cryptoService.Envelope,
	recorder audit.Recorder,
	logger *slog.Logger,
	masterKey *cryptoDomain.MasterKey,
	rotationParallelism int,
) SecretUseCase {
	if rotationParallelism < 1 {
		rotationParallelism = 1
	}
	return &secretUseCase{
		secretRepo:          secretRepo,
		keyRepo:             keyRepo,
		envelope:            envelope,
		recorder:            recorder,
		logger:              logger,
		masterKey:           masterKey,
		rotationParallelism: rotationParallelism,
		nameLocks:           make(map[string]*sync.Mutex),
		index:               make(map[string]*secretsDomain.Secret),
	}
}

// Initialize loads or generates the master key, then loads every persisted
// secret and verifies it decrypts under the key. Individual corrupted entries
// are logged and skipped; a non-empty store where *every* entry fails to
// decrypt indicates a wrong master password and is fatal.
func (s *secretUseCase) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.secretRepo.EnsureDir(); err != nil {
		return err
	}

	if s.keyRepo.Exists() {
		loaded, err := s.keyRepo.Load(ctx)
		if err != nil {
			return err
		}
		err = s.masterKey.Replace(loaded.Bytes())
		loaded.Close()
		if err != nil {
			return err
		}
	} else {
		fresh, err := cryptoDomain.NewMasterKey()
		if err != nil {
			return err
		}
		if err := s.keyRepo.Save(ctx, fresh); err != nil {
			fresh.Close()
			return errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, err.Error())
		}
		err = s.masterKey.Replace(fresh.Bytes())
		fresh.Close()
		if err != nil {
			return err
		}
		s.logger.Info("generated new master key")
	}

	persisted, err := s.secretRepo.LoadAll(ctx)
	if err != nil {
		return err
	}

	index := make(map[string]*secretsDomain.Secret, len(persisted))
	failures := 0
	for _, secret := range persisted {
		plaintext, err := s.envelope.Decrypt(secret.Envelope(), s.masterKey)
		if err != nil {
			failures++
			s.logger.Warn("skipping undecryptable secret",
				slog.String("secret", secret.Name),
				slog.Any("error", err),
			)
			continue
		}
		cryptoDomain.Zero(plaintext)
		index[secret.Name] = secret
	}

	if len(persisted) > 0 && failures == len(persisted) {
		return errors.Wrap(cryptoDomain.ErrMasterKeyUnavailable, "no persisted secret decrypts under the loaded key")
	}

	s.index = index
	s.initialized = true
	s.logger.Info("secret store initialized", slog.Int("secrets", len(index)))
	return nil
}

// nameLock returns the mutex serializing writes to one secret name.
func (s *secretUseCase) nameLock(name string) *sync.Mutex {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	lock, ok := s.nameLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.nameLocks[name] = lock
	}
	return lock
}

// validateName rejects names outside the filename-safe charset before any I/O.
func validateName(name string) error {
	return validation.WrapValidationError(validation.SecretName.Validate(name))
}

// Store validates the name, encrypts the value, and persists it, overwriting
// any existing secret of the same name.
func (s *secretUseCase) Store(
	ctx context.Context,
	name string,
	value []byte,
	opts StoreOptions,
) (*secretsDomain.Secret, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, secretsDomain.ErrStoreNotInitialized
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	return s.encryptAndSave(ctx, name, value, opts, time.Now().UTC())
}

// Update re-encrypts an existing secret with a fresh IV and salt, preserving
// its creation timestamp.
func (s *secretUseCase) Update(
	ctx context.Context,
	name string,
	value []byte,
	opts StoreOptions,
) (*secretsDomain.Secret, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, secretsDomain.ErrStoreNotInitialized
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	s.indexMu.RLock()
	existing, ok := s.index[name]
	s.indexMu.RUnlock()
	if !ok {
		return nil, secretsDomain.ErrSecretNotFound
	}

	return s.encryptAndSave(ctx, name, value, opts, existing.Metadata.CreatedAt)
}

// encryptAndSave builds, persists, and indexes one secret. Callers hold the
// read lock and the per-name lock.
func (s *secretUseCase) encryptAndSave(
	ctx context.Context,
	name string,
	value []byte,
	opts StoreOptions,
	createdAt time.Time,
) (*secretsDomain.Secret, error) {
	env, err := s.envelope.Encrypt(value, s.masterKey)
	if err != nil {
		return nil, err
	}

	secret := &secretsDomain.Secret{
		Name:      name,
		Algorithm: cryptoDomain.AESGCM,
		KeyDerivation: secretsDomain.KeyDerivationInfo{
			Function:   cryptoDomain.PBKDF2SHA256,
			Iterations: s.envelope.Iterations(),
		},
		Metadata: secretsDomain.Metadata{
			Description: opts.Description,
			Tags:        opts.Tags,
			ExpiresAt:   opts.ExpiresAt,
			CreatedAt:   createdAt,
		},
	}
	secret.ApplyEnvelope(env)

	if err := s.secretRepo.Save(ctx, secret); err != nil {
		return nil, err
	}

	s.indexMu.Lock()
	s.index[name] = secret
	s.indexMu.Unlock()
	return secret.MetadataOnly(), nil
}

// Get returns the plaintext, or nil when the secret is absent or expired.
// Every attempt is audited; hits bump the access counters.
func (s *secretUseCase) Get(ctx context.Context, name, userID string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, secretsDomain.ErrStoreNotInitialized
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	s.indexMu.RLock()
	secret, ok := s.index[name]
	s.indexMu.RUnlock()
	if !ok || secret.Expired(now) {
		s.recordAccess(ctx, name, userID, false)
		return nil, nil
	}

	plaintext, err := s.envelope.Decrypt(secret.Envelope(), s.masterKey)
	if err != nil {
		s.recordAccess(ctx, name, userID, false)
		return nil, err
	}

	// The write side of indexMu keeps the bump from racing List's metadata copies.
	s.indexMu.Lock()
	secret.Metadata.AccessCount++
	secret.Metadata.LastAccessed = &now
	s.indexMu.Unlock()
	if err := s.secretRepo.Save(ctx, secret); err != nil {
		// Access bookkeeping must not cost the caller the value.
		s.logger.Warn("failed to persist access metadata",
			slog.String("secret", name),
			slog.Any("error", err),
		)
	}

	s.recordAccess(ctx, name, userID, true)
	return plaintext, nil
}

// Delete removes the in-memory and persisted entry, reporting whether it existed.
func (s *secretUseCase) Delete(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return false, secretsDomain.ErrStoreNotInitialized
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	s.indexMu.Lock()
	_, inIndex := s.index[name]
	delete(s.index, name)
	s.indexMu.Unlock()

	existed, err := s.secretRepo.Delete(ctx, name)
	if err != nil {
		return false, err
	}
	return existed || inIndex, nil
}

// List returns metadata-only copies sorted by name. With tags given, only
// secrets carrying every requested tag are included.
func (s *secretUseCase) List(_ context.Context, tags []string) ([]*secretsDomain.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, secretsDomain.ErrStoreNotInitialized
	}

	s.indexMu.RLock()
	out := make([]*secretsDomain.Secret, 0, len(s.index))
	for _, secret := range s.index {
		if !hasAllTags(secret, tags) {
			continue
		}
		out = append(out, secret.MetadataOnly())
	}
	s.indexMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func hasAllTags(secret *secretsDomain.Secret, tags []string) bool {
	for _, tag := range tags {
		if !secret.HasTag(tag) {
			return false
		}
	}
	return true
}

// RotateMasterKey re-encrypts every secret under a fresh key and swaps the
// active key only after every secret has been successfully re-encrypted and
// persisted. Any failure rolls the store back to the previous key.
//
// The commit phase deliberately ignores ctx cancellation: an abandoned call
// still runs to completion so no secret is left encrypted under an orphaned key.
func (s *secretUseCase) RotateMasterKey(ctx context.Context, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return secretsDomain.ErrStoreNotInitialized
	}

	newKey, err := cryptoDomain.NewMasterKey()
	if err != nil {
		return err
	}
	defer newKey.Close()

	// Stage: decrypt with the old key, re-encrypt with the new, all in memory.
	// Nothing on disk changes until every secret staged successfully.
	staged := make(map[string]*secretsDomain.Secret, len(s.index))
	var stagedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rotationParallelism)
	for _, secret := range s.index {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			plaintext, err := s.envelope.Decrypt(secret.Envelope(), s.masterKey)
			if err != nil {
				return errors.Wrapf(err, "secret %s", secret.Name)
			}
			defer cryptoDomain.Zero(plaintext)

			env, err := s.envelope.Encrypt(plaintext, newKey)
			if err != nil {
				return errors.Wrapf(err, "secret %s", secret.Name)
			}

			next := *secret
			next.KeyDerivation.Iterations = s.envelope.Iterations()
			next.ApplyEnvelope(env)

			stagedMu.Lock()
			staged[next.Name] = &next
			stagedMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "rotation aborted during re-encryption")
	}

	// Commit: archive the old key file, persist the new key, then rewrite
	// every secret file. From here on out failures roll back to the old world.
	backupPath, err := s.keyRepo.Archive(time.Now())
	if err != nil {
		return errors.Wrap(err, "rotation aborted")
	}

	prevPassword := ""
	passwordChanged := false
	if newPassword != "" {
		prevPassword = s.keyRepo.SetPassword(newPassword)
		passwordChanged = true
	}

	rollback := func() {
		if passwordChanged {
			s.keyRepo.SetPassword(prevPassword)
		}
		if err := s.keyRepo.Restore(backupPath); err != nil {
			s.logger.Error("rotation rollback: failed to restore master key file",
				slog.String("backup", backupPath),
				slog.Any("error", err),
			)
		}
		for _, secret := range s.index {
			if err := s.secretRepo.Save(context.WithoutCancel(ctx), secret); err != nil {
				s.logger.Error("rotation rollback: failed to restore secret",
					slog.String("secret", secret.Name),
					slog.Any("error", err),
				)
			}
		}
	}

	commitCtx := context.WithoutCancel(ctx)

	if err := s.keyRepo.Save(commitCtx, newKey); err != nil {
		rollback()
		return errors.Wrap(err, "rotation aborted persisting new key")
	}

	for _, secret := range staged {
		if err := s.secretRepo.Save(commitCtx, secret); err != nil {
			rollback()
			return errors.Wrapf(err, "rotation aborted persisting secret %s", secret.Name)
		}
	}

	// Swap the active key pointer last: in-memory readers are excluded by the
	// rotation lock, so they only ever see the fully-new world after this.
	if err := s.masterKey.Replace(newKey.Bytes()); err != nil {
		rollback()
		return err
	}
	s.indexMu.Lock()
	s.index = staged
	s.indexMu.Unlock()

	s.logger.Info("master key rotated",
		slog.Int("secrets", len(staged)),
		slog.String("previous_key_backup", backupPath),
	)
	return nil
}

// Export serializes the encrypted store for backup. Ciphertext only.
func (s *secretUseCase) Export(_ context.Context) (*secretsDomain.ExportBlob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, secretsDomain.ErrStoreNotInitialized
	}

	s.indexMu.RLock()
	blob := &secretsDomain.ExportBlob{
		Version:   secretsDomain.ExportVersion,
		Timestamp: time.Now().UTC(),
		Secrets:   make([]*secretsDomain.Secret, 0, len(s.index)),
	}
	for _, secret := range s.index {
		cp := *secret
		cp.Plaintext = nil
		blob.Secrets = append(blob.Secrets, &cp)
	}
	s.indexMu.RUnlock()
	sort.Slice(blob.Secrets, func(i, j int) bool { return blob.Secrets[i].Name < blob.Secrets[j].Name })
	return blob, nil
}

// Import loads secrets from an export blob, overwriting name collisions.
func (s *secretUseCase) Import(ctx context.Context, blob *secretsDomain.ExportBlob) (int, error) {
	if err := blob.Validate(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return 0, secretsDomain.ErrStoreNotInitialized
	}

	imported := 0
	for _, secret := range blob.Secrets {
		if err := validateName(secret.Name); err != nil {
			return imported, errors.Wrapf(err, "secret %q", secret.Name)
		}

		lock := s.nameLock(secret.Name)
		lock.Lock()
		cp := *secret
		cp.Plaintext = nil
		err := s.secretRepo.Save(ctx, &cp)
		if err == nil {
			s.indexMu.Lock()
			s.index[cp.Name] = &cp
			s.indexMu.Unlock()
			imported++
		}
		lock.Unlock()
		if err != nil {
			return imported, err
		}
	}
	return imported, nil
}

// recordAccess appends an access audit entry, logging on failure rather than
// failing the read path.
func (s *secretUseCase) recordAccess(ctx context.Context, name, userID string, success bool) {
	entry := &audit.AccessEntry{
		Secret:    name,
		Timestamp: time.Now().UTC(),
		User:      userID,
		Success:   success,
	}
	if err := s.recorder.RecordAccess(ctx, entry); err != nil {
		s.logger.Warn("failed to record access audit entry",
			slog.String("secret", name),
			slog.Any("error", err),
		)
	}
}
