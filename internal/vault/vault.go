// Package vault mirrors credential material into a secret store so operators
// can recover it out of band. The mirror is strictly best-effort: a vault
// outage never fails the credential operation that triggered it.
package vault

import (
	"context"

	"github.com/credsync/credsync/internal/config"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// Client is the contract a secret-store backend implements.
type Client interface {
	// Get reads a secret. found is false when the key does not exist,
	// which is a normal answer rather than an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes a secret, creating or updating as needed.
	Set(ctx context.Context, key, value string) error

	// Delete removes a secret. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the stored keys under a prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// New builds the configured vault backend, or nil when no vault is set up.
func New(cfg *config.VaultConfig, logger *logging.Logger) (Client, error) {
	if cfg == nil {
		return nil, nil
	}

	switch cfg.Type {
	case "aws-secretsmanager":
		return NewAWSClient(cfg.Config, logger)
	case "gcp-secretmanager":
		return NewGCPClient(cfg.Config, logger)
	case "azure-keyvault":
		return NewAzureClient(cfg.Config, logger)
	case "keyring":
		return NewKeyringClient(cfg.Config, logger)
	default:
		return nil, credserrors.ConfigError{
			Field:      "vault.type",
			Value:      cfg.Type,
			Message:    "unknown vault type",
			Suggestion: "Supported vault types: aws-secretsmanager, gcp-secretmanager, azure-keyvault, keyring",
		}
	}
}
