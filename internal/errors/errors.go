package errors

import (
	"errors"
	"fmt"
	"strings"
)

// MinSecretLength is the minimum accepted plaintext length for a new secret.
const MinSecretLength = 8

// WeakSecretError indicates a new secret fails the minimum-length policy.
// It is surfaced to the caller before any store mutation is attempted.
type WeakSecretError struct {
	Length int
}

func (e WeakSecretError) Error() string {
	return fmt.Sprintf("secret too weak: %d characters, minimum is %d", e.Length, MinSecretLength)
}

// InvalidCredentialError indicates the old-password proof failed during a
// self-service password change.
type InvalidCredentialError struct {
	UserID string
}

func (e InvalidCredentialError) Error() string {
	return fmt.Sprintf("current password verification failed for user %s", e.UserID)
}

// UserNotFoundError indicates the directory has no entry for the user.
type UserNotFoundError struct {
	UserID string
}

func (e UserNotFoundError) Error() string {
	return fmt.Sprintf("user %s not found in directory", e.UserID)
}

// NoBackingStoresError indicates a sync was requested for a user with zero
// enrolled backing stores. Fatal: no propagation is attempted.
type NoBackingStoresError struct {
	UserID string
}

func (e NoBackingStoresError) Error() string {
	return fmt.Sprintf("user %s has no backing stores enrolled", e.UserID)
}

// MissingSystemCredentialsError indicates the system credential pair for a
// backing store could not be resolved from the environment. Configuration
// error: fatal, never retried.
type MissingSystemCredentialsError struct {
	StoreName string
}

func (e MissingSystemCredentialsError) Error() string {
	return fmt.Sprintf("no system credentials configured for store %q (set CREDSYNC_STORE_%s_USERNAME/_PASSWORD or the CREDSYNC_SYSTEM_* fallback)",
		e.StoreName, EnvSegment(e.StoreName))
}

// PersistenceError indicates the directory or audit storage is unavailable.
// Audit appends are best-effort: callers log this at error severity but do
// not fail the primary credential operation because of it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("directory persistence failed during %s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error {
	return e.Err
}

// StoreError wraps an error returned by a backing-store client with the store
// and operation it came from. Transient marks errors worth retrying; a
// definitive rejection (for example the store reports the record does not
// exist) is non-transient and stops the retry loop immediately.
type StoreError struct {
	Store     string
	Op        string
	Transient bool
	Err       error
}

func (e StoreError) Error() string {
	kind := "definitive"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("store %s: %s failed (%s): %v", e.Store, e.Op, kind, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration problem with enough context for the
// user to fix it.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message
	if e.Suggestion != "" {
		msg += "\n  Try: " + e.Suggestion
	}
	return msg
}

// UserError is a caller-facing error with optional details and a suggestion.
type UserError struct {
	Message    string
	Details    string
	Suggestion string
	Err        error
}

func (e UserError) Error() string {
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}
	if e.Suggestion != "" {
		parts = append(parts, "\n  Try: "+e.Suggestion)
	}
	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// retryablePatterns matches error text from store clients that indicates a
// transient condition. Classification by error shape is a fallback for
// clients that do not return StoreError.
var retryablePatterns = []string{
	"timeout",
	"timed out",
	"temporary failure",
	"connection reset",
	"connection refused",
	"broken pipe",
	"rate limit",
	"throttling",
	"too many requests",
	"service unavailable",
	"no such host",
	"session expired",
	"not authenticated",
}

// IsRetryable reports whether the propagation unit should retry after err.
// A typed StoreError carries an explicit transient flag; anything else is
// classified by message shape.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var storeErr StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Transient
	}
	var missing MissingSystemCredentialsError
	if errors.As(err, &missing) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// EnvSegment converts a store name to the form used in credential
// environment variable names: upper-cased with non-alphanumerics as '_'.
func EnvSegment(storeName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(storeName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
