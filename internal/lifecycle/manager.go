// Package lifecycle implements the user-facing credential operations:
// change-password, admin reset, enrollment, and offboarding. The manager
// composes the hasher, the directory, the fan-out synchronizer, and the
// optional vault mirror into single calls with one audit trail each.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/credsync/credsync/internal/directory"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/hasher"
	"github.com/credsync/credsync/internal/logging"
	"github.com/credsync/credsync/internal/syncer"
	"github.com/credsync/credsync/internal/vault"
)

// Manager drives credential lifecycle operations.
type Manager struct {
	hasher             *hasher.Hasher
	directory          directory.Store
	synchronizer       *syncer.Synchronizer
	clients            syncer.ClientSource
	mirror             *vault.Mirror
	authoritativeStore string
	logger             *logging.Logger
}

// Result reports one lifecycle operation: the fan-out outcome plus the
// best-effort vault mirror outcomes, one per store whose update succeeded.
// Sync describes the primary operation; the vault outcomes never change its
// success.
type Result struct {
	Sync  *syncer.SyncResult    `json:"sync"`
	Vault []vault.MirrorOutcome `json:"vault,omitempty"`
}

// NewManager wires a lifecycle manager. authoritativeStore names the store
// current passwords are verified against; mirror may be disabled.
func NewManager(h *hasher.Hasher, dir directory.Store, sync *syncer.Synchronizer, clients syncer.ClientSource, mirror *vault.Mirror, authoritativeStore string, logger *logging.Logger) *Manager {
	return &Manager{
		hasher:             h,
		directory:          dir,
		synchronizer:       sync,
		clients:            clients,
		mirror:             mirror,
		authoritativeStore: authoritativeStore,
		logger:             logger,
	}
}

// ChangePassword verifies the user's current password against the
// authoritative store, then fans the new one out everywhere. A wrong current
// password is audited and rejected before anything is written.
func (m *Manager) ChangePassword(ctx context.Context, userID string, currentPassword, newPassword logging.Secret) (*Result, error) {
	started := time.Now()

	entry, err := m.lookupUser(userID)
	if err != nil {
		m.auditFatal(userID, directory.OpPasswordChange, err, started)
		return nil, err
	}

	// Hash first: a weak new password is rejected before any store is read.
	hashed, err := m.hasher.Hash(newPassword.Reveal())
	if err != nil {
		m.auditFatal(userID, directory.OpPasswordChange, err, started)
		return nil, err
	}

	if err := m.verifyCurrentPassword(ctx, entry, currentPassword); err != nil {
		var invalid credserrors.InvalidCredentialError
		if errors.As(err, &invalid) {
			m.auditRejection(userID, directory.OpPasswordChange, "invalid_current_password", started)
		} else {
			m.auditFatal(userID, directory.OpPasswordChange, err, started)
		}
		return nil, err
	}

	return m.applyNewCredential(ctx, entry, directory.OpPasswordChange, hashed, "", "", started)
}

// ResetPassword sets a new password without proof of the old one. adminID
// identifies who authorized the reset and is recorded in the audit trail.
func (m *Manager) ResetPassword(ctx context.Context, userID, adminID, reason string, newPassword logging.Secret) (*Result, error) {
	started := time.Now()

	if adminID == "" {
		return nil, credserrors.UserError{
			Message:    "An administrator identity is required for a password reset",
			Suggestion: "Pass the administrator ID performing the reset",
		}
	}

	entry, err := m.lookupUser(userID)
	if err != nil {
		m.auditFatal(userID, directory.OpPasswordReset, err, started)
		return nil, err
	}

	hashed, err := m.hasher.Hash(newPassword.Reveal())
	if err != nil {
		m.auditFatal(userID, directory.OpPasswordReset, err, started)
		return nil, err
	}

	return m.applyNewCredential(ctx, entry, directory.OpPasswordReset, hashed, adminID, reason, started)
}

// Resync re-pushes the credential held by the authoritative store to every
// enrolled backing store. This recovers stores left failed or pending by an
// earlier change or reset without requiring the password again.
func (m *Manager) Resync(ctx context.Context, userID string) (*syncer.SyncResult, error) {
	entry, err := m.lookupUser(userID)
	if err != nil {
		return nil, err
	}

	enrollment := entry.FindStore(m.authoritativeStore)
	if enrollment == nil {
		return nil, credserrors.ConfigError{
			Field:      "stores",
			Value:      m.authoritativeStore,
			Message:    "user is not enrolled in the authoritative store",
			Suggestion: "Enroll the user in the authoritative store before re-syncing",
		}
	}

	client, err := m.clients.Get(m.authoritativeStore)
	if err != nil {
		return nil, err
	}
	if !client.IsAuthenticated() {
		if err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	hashed, err := client.GetCredential(ctx, enrollment.ExternalRecordID)
	if err != nil {
		return nil, err
	}

	return m.synchronizer.SyncToAllStores(ctx, userID, userID, hashed)
}

// Enroll registers a user in a backing store and brings the new enrollment
// in sync on the next password operation.
func (m *Manager) Enroll(userID, storeName, externalRecordID string) (*directory.Entry, error) {
	entry, err := m.directory.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry, err = m.directory.UpsertUser(userID, directory.Entry{})
		if err != nil {
			return nil, err
		}
		m.logger.Info("created directory entry for %s", userID)
	}

	return m.directory.AddBackingStore(userID, directory.BackingStore{
		StoreName:        storeName,
		ExternalRecordID: externalRecordID,
	})
}

// Offboard removes the user's directory entry and any mirrored secrets. The
// audit history is retained. Idempotent.
func (m *Manager) Offboard(ctx context.Context, userID string) error {
	if m.mirror.Enabled() {
		if err := m.mirror.DeleteAll(ctx, userID); err != nil {
			m.logger.Warn("failed to clear vault mirror for %s: %v", userID, err)
		}
	}
	return m.directory.DeleteUser(userID)
}

func (m *Manager) lookupUser(userID string) (*directory.Entry, error) {
	entry, err := m.directory.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, credserrors.UserNotFoundError{UserID: userID}
	}
	if len(entry.BackingStores) == 0 {
		return nil, credserrors.NoBackingStoresError{UserID: userID}
	}
	return entry, nil
}

// verifyCurrentPassword checks the claimed current password against the
// credential held by the authoritative store.
func (m *Manager) verifyCurrentPassword(ctx context.Context, entry *directory.Entry, currentPassword logging.Secret) error {
	enrollment := entry.FindStore(m.authoritativeStore)
	if enrollment == nil {
		return credserrors.ConfigError{
			Field:      "stores",
			Value:      m.authoritativeStore,
			Message:    "user is not enrolled in the authoritative store",
			Suggestion: "Enroll the user in the authoritative store, or use an admin reset instead",
		}
	}

	client, err := m.clients.Get(m.authoritativeStore)
	if err != nil {
		return err
	}
	if !client.IsAuthenticated() {
		if err := client.Authenticate(ctx); err != nil {
			return err
		}
	}

	storedHash, err := client.GetCredential(ctx, enrollment.ExternalRecordID)
	if err != nil {
		return err
	}

	if !m.hasher.Verify(currentPassword.Reveal(), storedHash) {
		return credserrors.InvalidCredentialError{UserID: entry.UserID}
	}
	return nil
}

// applyNewCredential fans the hashed credential out, mirrors the hash to the
// vault for each store that took it, and writes the operation-level audit
// entry. The mirror is best-effort: its outcomes ride along without
// affecting the primary success.
func (m *Manager) applyNewCredential(ctx context.Context, entry *directory.Entry, op directory.Operation, hashed, adminID, reason string, started time.Time) (*Result, error) {
	syncResult, err := m.synchronizer.SyncToAllStores(ctx, entry.UserID, entry.UserID, hashed)
	if err != nil {
		m.auditFatal(entry.UserID, op, err, started)
		return nil, err
	}

	result := &Result{Sync: syncResult}

	// The mirror only ever holds the hashed credential, and only for stores
	// that are actually in sync with it.
	if m.mirror.Enabled() {
		for _, outcome := range syncResult.Outcomes {
			if !outcome.Success {
				continue
			}
			result.Vault = append(result.Vault, m.mirror.Store(ctx, entry.UserID, outcome.StoreName, logging.Secret(hashed)))
		}
	}

	status := directory.AuditSuccess
	switch {
	case syncResult.SuccessCount == 0:
		status = directory.AuditFailed
	case !syncResult.Success:
		status = directory.AuditPartialFailure
	}
	_, auditErr := m.directory.AppendAudit(directory.AuditEntry{
		UserID:     entry.UserID,
		Operation:  op,
		Status:     status,
		AdminID:    adminID,
		Reason:     reason,
		DurationMs: time.Since(started).Milliseconds(),
	})
	if auditErr != nil {
		m.logger.Error("failed to record audit entry for %s: %v", entry.UserID, auditErr)
	}

	m.logger.Debug("%s for %s: %d/%d stores", op, entry.UserID, syncResult.SuccessCount, syncResult.TotalCount)
	return result, nil
}

// auditRejection records an operation that was refused before any store was
// touched, such as a failed current-password proof.
func (m *Manager) auditRejection(userID string, op directory.Operation, reason string, started time.Time) {
	_, err := m.directory.AppendAudit(directory.AuditEntry{
		UserID:     userID,
		Operation:  op,
		Status:     directory.AuditFailed,
		Reason:     reason,
		DurationMs: time.Since(started).Milliseconds(),
	})
	if err != nil {
		m.logger.Error("failed to record audit entry for %s: %v", userID, err)
	}
}

// auditFatal records an operation that died before or during the fan-out, so
// even a fully failed operation leaves exactly one audit entry.
func (m *Manager) auditFatal(userID string, op directory.Operation, opErr error, started time.Time) {
	_, err := m.directory.AppendAudit(directory.AuditEntry{
		UserID:     userID,
		Operation:  op,
		Status:     directory.AuditError,
		Error:      opErr.Error(),
		DurationMs: time.Since(started).Milliseconds(),
	})
	if err != nil {
		m.logger.Error("failed to record audit entry for %s: %v", userID, err)
	}
}
