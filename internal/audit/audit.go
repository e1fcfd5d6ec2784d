// Package audit records secret-access events and authorization decisions.
//
// Entries are appended as JSON lines to restricted files in the store directory
// and are HMAC-signed with a key derived from the vault master key, so an
// attacker who can edit the log but does not hold the master key cannot forge
// or alter history undetected. Secret values never appear in audit entries.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/allisson/localvault/internal/errors"
)

const (
	// AccessLogFileName holds secret-access entries.
	AccessLogFileName = "access.log"
	// DecisionLogFileName holds authorization decision entries.
	DecisionLogFileName = "decisions.log"

	filePerm os.FileMode = 0o600
)

// ErrSignatureInvalid indicates an audit entry failed signature verification.
var ErrSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit signature invalid")

// AccessEntry records one secret access attempt.
type AccessEntry struct {
	Secret    string    `json:"secret"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user,omitempty"`
	Success   bool      `json:"success"`
	Signature []byte    `json:"signature,omitempty"`
}

// DecisionEntry records one authorization decision.
type DecisionEntry struct {
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Granted   bool      `json:"granted"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Signature []byte    `json:"signature,omitempty"`
}

// Recorder appends audit entries durably.
type Recorder interface {
	// RecordAccess appends a secret-access entry.
	RecordAccess(ctx context.Context, entry *AccessEntry) error
	// RecordDecision appends an authorization decision entry.
	RecordDecision(ctx context.Context, entry *DecisionEntry) error
}

// KeyFunc supplies the current signing key material (the master key bytes).
// Returning nil disables signing, which happens before store initialization.
type KeyFunc func() []byte

// FileRecorder appends signed JSON lines to per-kind log files.
type FileRecorder struct {
	accessPath   string
	decisionPath string
	signer       *Signer
	keyFn        KeyFunc

	mu sync.Mutex
}

// NewFileRecorder creates a recorder writing under dir. keyFn may be nil for
// unsigned entries.
func NewFileRecorder(dir string, signer *Signer, keyFn KeyFunc) *FileRecorder {
	return &FileRecorder{
		accessPath:   filepath.Join(dir, AccessLogFileName),
		decisionPath: filepath.Join(dir, DecisionLogFileName),
		signer:       signer,
		keyFn:        keyFn,
	}
}

// RecordAccess appends a secret-access entry, signing it when a key is available.
func (r *FileRecorder) RecordAccess(_ context.Context, entry *AccessEntry) error {
	if key := r.key(); key != nil && r.signer != nil {
		sig, err := r.signer.SignAccess(key, entry)
		if err != nil {
			return err
		}
		entry.Signature = sig
	}
	return r.append(r.accessPath, entry)
}

// RecordDecision appends an authorization decision entry, signing it when a key
// is available.
func (r *FileRecorder) RecordDecision(_ context.Context, entry *DecisionEntry) error {
	if key := r.key(); key != nil && r.signer != nil {
		sig, err := r.signer.SignDecision(key, entry)
		if err != nil {
			return err
		}
		entry.Signature = sig
	}
	return r.append(r.decisionPath, entry)
}

func (r *FileRecorder) key() []byte {
	if r.keyFn == nil {
		return nil
	}
	return r.keyFn()
}

// append serializes the entry as one JSON line under the recorder lock.
func (r *FileRecorder) append(path string, entry any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit entry")
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return errors.Wrap(err, "failed to open audit log")
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}
	return nil
}
