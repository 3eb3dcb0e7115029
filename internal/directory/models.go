// Package directory implements the persistent registry mapping a logical
// user to the set of backing stores they are enrolled in, together with an
// append-only audit log of every credential operation.
package directory

import (
	"time"
)

// StoreStatus is the sync state of one backing-store enrollment.
type StoreStatus string

const (
	StoreStatusSynced  StoreStatus = "synced"
	StoreStatusPending StoreStatus = "pending"
	StoreStatusFailed  StoreStatus = "failed"
)

// Operation identifies the kind of credential operation an audit entry records.
type Operation string

const (
	OpPasswordChange Operation = "password_change"
	OpPasswordReset  Operation = "password_reset"
	OpPasswordSync   Operation = "password_sync"
	OpVaultStore     Operation = "vault_store"
	OpVaultRetrieve  Operation = "vault_retrieve"
	OpVaultDelete    Operation = "vault_delete"
)

// AuditStatus is the outcome class of an audited operation.
type AuditStatus string

const (
	AuditSuccess        AuditStatus = "success"
	AuditPartialFailure AuditStatus = "partial_failure"
	AuditError          AuditStatus = "error"
	AuditFailed         AuditStatus = "failed"
)

// BackingStore is one enrollment of a user in a named backing store.
type BackingStore struct {
	StoreName        string      `json:"store_name"`
	ExternalRecordID string      `json:"external_record_id"`
	EnrolledAt       time.Time   `json:"enrolled_at"`
	Status           StoreStatus `json:"status"`
}

// Entry is the directory record for one logical user.
// BackingStores never contains two enrollments with the same StoreName.
type Entry struct {
	UserID        string         `json:"user_id"`
	BackingStores []BackingStore `json:"backing_stores"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// FindStore returns the enrollment for storeName, or nil.
func (e *Entry) FindStore(storeName string) *BackingStore {
	for i := range e.BackingStores {
		if e.BackingStores[i].StoreName == storeName {
			return &e.BackingStores[i]
		}
	}
	return nil
}

// StoreOutcome is one backing store's individual result within an audited
// fan-out operation.
type StoreOutcome struct {
	StoreName string `json:"store_name"`
	RecordID  string `json:"record_id,omitempty"`
	Success   bool   `json:"success"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuditEntry records a single credential operation. Entries are append-only
// and never mutated after creation; old entries may be pruned by age.
type AuditEntry struct {
	LogID            string            `json:"log_id"`
	UserID           string            `json:"user_id"`
	Operation        Operation         `json:"operation"`
	Status           AuditStatus       `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	PerStoreOutcomes []StoreOutcome    `json:"per_store_outcomes,omitempty"`
	AdminID          string            `json:"admin_id,omitempty"`
	Reason           string            `json:"reason,omitempty"`
	Error            string            `json:"error,omitempty"`
	DurationMs       int64             `json:"duration_ms"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}
