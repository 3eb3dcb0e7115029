package vault

import (
	"context"
	"fmt"

	"github.com/credsync/credsync/internal/directory"
	"github.com/credsync/credsync/internal/logging"
)

// KeyPrefix namespaces every secret this tool writes.
const KeyPrefix = "credsync"

// SecretKey derives the deterministic vault key for a user's credential in
// one store. The same inputs always map to the same key, so updates
// overwrite rather than accumulate.
func SecretKey(userID, storeName string) string {
	return fmt.Sprintf("%s/%s/%s", KeyPrefix, userID, storeName)
}

// MirrorOutcome reports what the mirror did, for inclusion in results.
type MirrorOutcome struct {
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	Key       string `json:"key,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Mirror copies credential material into the configured vault and records
// each vault touch in the audit log.
type Mirror struct {
	client    Client
	directory directory.Store
	logger    *logging.Logger
}

// NewMirror wires a mirror over a vault backend. A nil client produces a
// mirror whose operations all report not-attempted.
func NewMirror(client Client, dir directory.Store, logger *logging.Logger) *Mirror {
	return &Mirror{client: client, directory: dir, logger: logger}
}

// Enabled reports whether a vault backend is configured.
func (m *Mirror) Enabled() bool {
	return m != nil && m.client != nil
}

// Store mirrors a credential value under the deterministic key. Failures are
// reported in the outcome and logged, never escalated.
func (m *Mirror) Store(ctx context.Context, userID, storeName string, value logging.Secret) MirrorOutcome {
	if !m.Enabled() {
		return MirrorOutcome{}
	}

	key := SecretKey(userID, storeName)
	outcome := MirrorOutcome{Attempted: true, Key: key}

	err := m.client.Set(ctx, key, value.Reveal())
	if err != nil {
		outcome.Error = err.Error()
		m.logger.Warn("vault mirror failed for %s: %v", key, err)
	} else {
		outcome.Success = true
		m.logger.Debug("vault mirror wrote %s", key)
	}

	m.audit(userID, directory.OpVaultStore, key, err)
	return outcome
}

// Retrieve reads a mirrored credential. An absent key is a normal outcome.
func (m *Mirror) Retrieve(ctx context.Context, userID, storeName string) (logging.Secret, bool, error) {
	if !m.Enabled() {
		return "", false, fmt.Errorf("no vault backend configured")
	}

	key := SecretKey(userID, storeName)
	value, found, err := m.client.Get(ctx, key)
	m.audit(userID, directory.OpVaultRetrieve, key, err)
	if err != nil {
		return "", false, err
	}
	return logging.Secret(value), found, nil
}

// Delete removes a mirrored credential. Deleting what is not there succeeds.
func (m *Mirror) Delete(ctx context.Context, userID, storeName string) error {
	if !m.Enabled() {
		return nil
	}

	key := SecretKey(userID, storeName)
	err := m.client.Delete(ctx, key)
	m.audit(userID, directory.OpVaultDelete, key, err)
	return err
}

// Keys lists the vault keys mirrored for a user.
func (m *Mirror) Keys(ctx context.Context, userID string) ([]string, error) {
	if !m.Enabled() {
		return nil, fmt.Errorf("no vault backend configured")
	}
	return m.client.List(ctx, fmt.Sprintf("%s/%s/", KeyPrefix, userID))
}

// DeleteAll removes every mirrored credential for a user.
func (m *Mirror) DeleteAll(ctx context.Context, userID string) error {
	if !m.Enabled() {
		return nil
	}

	prefix := fmt.Sprintf("%s/%s/", KeyPrefix, userID)
	keys, err := m.client.List(ctx, prefix)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := m.client.Delete(ctx, key); err != nil {
			return err
		}
	}
	m.audit(userID, directory.OpVaultDelete, prefix+"*", nil)
	return nil
}

func (m *Mirror) audit(userID string, op directory.Operation, key string, opErr error) {
	entry := directory.AuditEntry{
		UserID:    userID,
		Operation: op,
		Status:    directory.AuditSuccess,
		Metadata:  map[string]string{"key": key},
	}
	if opErr != nil {
		entry.Status = directory.AuditError
		entry.Error = opErr.Error()
	}
	if _, err := m.directory.AppendAudit(entry); err != nil {
		m.logger.Error("failed to record vault audit entry for %s: %v", userID, err)
	}
}
