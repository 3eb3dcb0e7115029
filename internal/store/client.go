// Package store contains the protocol clients that carry credential updates
// to the external systems a user is enrolled in. Each client speaks one
// transport (SQL, HTTP) and reports failures as StoreError values so the
// retry loop can tell a flaky connection from a definitive rejection.
package store

import "context"

// Client is the contract every backing-store protocol implements.
type Client interface {
	// Name returns the configured store name.
	Name() string

	// Authenticate establishes a session using the store's system
	// credentials. Clients that hold no session state may make this a
	// connectivity check.
	Authenticate(ctx context.Context) error

	// IsAuthenticated reports whether a usable session is in place.
	IsAuthenticated() bool

	// UpdateCredential writes the hashed credential for the user's record
	// in this store. The plaintext never reaches a client.
	UpdateCredential(ctx context.Context, recordID, username, hashedPassword string) error

	// GetCredential reads back the stored credential hash for a record.
	GetCredential(ctx context.Context, recordID string) (string, error)

	// Close releases connections held by the client.
	Close() error
}
