// Package hasher provides one-way hashing and verification of plaintext
// secrets. Exactly one hash is computed per logical password-set operation
// and distributed unchanged to every backing store, so all stores validate
// against the same credential.
package hasher

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// Cost is the fixed bcrypt cost factor used for all hashes.
const Cost = 10

// Hasher hashes and verifies plaintext secrets. It holds no state beyond a
// logger and is safe for concurrent use.
type Hasher struct {
	logger *logging.Logger
}

// New creates a Hasher.
func New(logger *logging.Logger) *Hasher {
	return &Hasher{logger: logger}
}

// Hash produces a salted bcrypt hash of plaintext. Because bcrypt salts every
// call, hashing the same input twice yields different hashes; Verify is the
// only way to check a plaintext against a stored hash.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) < credserrors.MinSecretLength {
		return "", credserrors.WeakSecretError{Length: len(plaintext)}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed. It never returns an error:
// a malformed hash is logged and treated as a mismatch.
func (h *Hasher) Verify(plaintext, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) && h.logger != nil {
		h.logger.Warn("credential verification against malformed hash: %v", err)
	}
	return false
}
