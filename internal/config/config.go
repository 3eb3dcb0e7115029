package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the credsync.yaml structure
type Definition struct {
	Version int                    `yaml:"version" json:"version"`
	Stores  map[string]StoreConfig `yaml:"stores" json:"stores"`
	Vault   *VaultConfig           `yaml:"vault,omitempty" json:"vault,omitempty"`
	Sync    SyncConfig             `yaml:"sync,omitempty" json:"sync,omitempty"`
	Cache   CacheConfig            `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// StoreConfig holds backing-store-specific configuration
type StoreConfig struct {
	Type          string                 `yaml:"type" json:"type"`
	Authoritative bool                   `yaml:"authoritative,omitempty" json:"authoritative,omitempty"`
	TimeoutMs     int                    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Config        map[string]interface{} `yaml:",inline" json:"config,omitempty"`
}

// VaultConfig holds the optional secret-vault mirror configuration
type VaultConfig struct {
	Type   string                 `yaml:"type" json:"type"`
	Config map[string]interface{} `yaml:",inline" json:"config,omitempty"`
}

// SyncConfig tunes the fan-out synchronizer
type SyncConfig struct {
	MaxConcurrent int `yaml:"max_concurrent,omitempty" json:"max_concurrent,omitempty"`
	MaxAttempts   int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	BackoffMs     int `yaml:"backoff_ms,omitempty" json:"backoff_ms,omitempty"`
}

// CacheConfig tunes the directory read cache
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds,omitempty" json:"ttl_seconds,omitempty"`
}

// Load reads, parses and validates the credsync.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return credserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a credsync.yaml or pass --config with the file location",
			}
		}
		return credserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return credserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return credserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your credsync.yaml file",
		}
	}

	if err := validateDefinition(&def); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// GetStore returns the configuration for a named backing store
func (c *Config) GetStore(name string) (StoreConfig, error) {
	if c.Definition == nil {
		return StoreConfig{}, credserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	store, ok := c.Definition.Stores[name]
	if !ok {
		suggestion := "Add the store to the 'stores:' section of your credsync.yaml"
		if available := c.StoreNames(); len(available) > 0 {
			suggestion = fmt.Sprintf("Available stores: %s. %s", strings.Join(available, ", "), suggestion)
		}
		return StoreConfig{}, credserrors.ConfigError{
			Field:      "store",
			Value:      name,
			Message:    "store not found in configuration",
			Suggestion: suggestion,
		}
	}

	return store, nil
}

// StoreNames returns the configured store names, sorted.
func (c *Config) StoreNames() []string {
	if c.Definition == nil {
		return nil
	}
	names := make([]string, 0, len(c.Definition.Stores))
	for name := range c.Definition.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthoritativeStore returns the name of the store designated as the source
// of truth for current-password verification.
func (c *Config) AuthoritativeStore() (string, error) {
	if c.Definition == nil {
		return "", credserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	for name, store := range c.Definition.Stores {
		if store.Authoritative {
			return name, nil
		}
	}

	return "", credserrors.ConfigError{
		Field:      "stores",
		Message:    "no store is marked authoritative",
		Suggestion: "Set 'authoritative: true' on exactly one store to verify current passwords against",
	}
}

// Timeout returns the per-store operation timeout.
func (s StoreConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// ConfigString returns a string value from the inline store config.
func (s StoreConfig) ConfigString(key string) string {
	if v, ok := s.Config[key].(string); ok {
		return v
	}
	return ""
}

// MaxConcurrent returns the fan-out concurrency bound.
func (s SyncConfig) GetMaxConcurrent() int {
	if s.MaxConcurrent <= 0 {
		return 4
	}
	return s.MaxConcurrent
}

// GetMaxAttempts returns the per-store attempt budget.
func (s SyncConfig) GetMaxAttempts() int {
	if s.MaxAttempts <= 0 {
		return 3
	}
	return s.MaxAttempts
}

// GetBackoff returns the base backoff between retries. The backoff grows
// linearly with the attempt number, so the default gives 1s then 2s waits.
func (s SyncConfig) GetBackoff() time.Duration {
	if s.BackoffMs <= 0 {
		return time.Second
	}
	return time.Duration(s.BackoffMs) * time.Millisecond
}

// GetTTL returns the directory cache TTL.
func (c CacheConfig) GetTTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// SystemCredentials resolves the service-account credentials used to connect
// to a backing store. A store-specific pair wins over the shared fallback.
func SystemCredentials(storeName string) (string, logging.Secret, error) {
	seg := credserrors.EnvSegment(storeName)

	username := os.Getenv("CREDSYNC_STORE_" + seg + "_USERNAME")
	password := os.Getenv("CREDSYNC_STORE_" + seg + "_PASSWORD")

	if username == "" && password == "" {
		username = os.Getenv("CREDSYNC_SYSTEM_USERNAME")
		password = os.Getenv("CREDSYNC_SYSTEM_PASSWORD")
	}

	if username == "" || password == "" {
		return "", "", credserrors.MissingSystemCredentialsError{StoreName: storeName}
	}

	return username, logging.Secret(password), nil
}
