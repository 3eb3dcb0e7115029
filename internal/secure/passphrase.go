// Package secure holds plaintext passphrases in protected memory between the
// moment they enter the process and the moment they are hashed. The enclave
// encrypts the value at rest in memory and mlocks it against swapping, so a
// core dump or swap file never carries a user's password.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Passphrase is a memory-protected plaintext password. Create one as soon as
// the password enters the process, zero the source buffer, and Destroy the
// passphrase once it has been hashed or verified.
type Passphrase struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy calls and blocks use after it.
	destroyed bool
}

// NewPassphrase seals secret bytes into a protected enclave. The input slice
// is copied; the caller should zero it afterwards.
func NewPassphrase(data []byte) *Passphrase {
	return &Passphrase{enclave: memguard.NewEnclave(data)}
}

// Use decrypts the passphrase, runs fn over the plaintext, and wipes the
// decrypted copy before returning. The plaintext must not escape fn.
func (p *Passphrase) Use(fn func(plaintext []byte) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.destroyed {
		return fn(nil)
	}

	locked, err := p.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroy blocks further use of the passphrase. The encrypted enclave data
// stays safe without explicit wiping. Idempotent.
func (p *Passphrase) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
}

// Purge wipes all protected memory. Call once in a defer in main.
func Purge() {
	memguard.Purge()
}
