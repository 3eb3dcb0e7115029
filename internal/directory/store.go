package directory

import (
	"time"
)

// Store defines the interface for directory and audit persistence.
type Store interface {
	// GetUser retrieves the entry for userID, or nil if the user is unknown.
	GetUser(userID string) (*Entry, error)

	// UpsertUser merges partial into the existing entry for userID, creating
	// the entry if absent, and returns the stored result. A nil BackingStores
	// slice in partial leaves the existing enrollments untouched.
	UpsertUser(userID string, partial Entry) (*Entry, error)

	// AddBackingStore enrolls the user in a backing store, replacing any
	// existing enrollment with the same store name. Fails with
	// UserNotFoundError if the user does not exist.
	AddBackingStore(userID string, store BackingStore) (*Entry, error)

	// RemoveBackingStore drops the named enrollment. Removing an enrollment
	// that does not exist is not an error.
	RemoveBackingStore(userID, storeName string) (*Entry, error)

	// SetStoreStatus updates the sync status of one enrollment.
	SetStoreStatus(userID, storeName string, status StoreStatus) error

	// DeleteUser removes the user's entry. Idempotent: deleting an absent
	// user is not an error. The audit log is retained.
	DeleteUser(userID string) error

	// AppendAudit persists an audit entry, assigning LogID if unset, and
	// returns the stored entry. Failures are PersistenceError.
	AppendAudit(entry AuditEntry) (*AuditEntry, error)

	// GetAudit returns the newest audit entries for a user, newest first,
	// up to limit (limit <= 0 means all).
	GetAudit(userID string, limit int) ([]AuditEntry, error)

	// GetAllAudit returns the newest audit entries across all users.
	GetAllAudit(limit int) ([]AuditEntry, error)

	// PruneAudit removes audit entries older than the given age.
	PruneAudit(olderThan time.Duration) error
}
