package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/credsync/credsync/internal/logging"
)

// defaultKeyringService is the service name secrets are filed under in the
// OS keychain.
const defaultKeyringService = "credsync"

// KeyringAPI wraps the OS keychain operations so tests can substitute an
// in-memory fake.
type KeyringAPI interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

type systemKeyring struct{}

func (systemKeyring) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}

func (systemKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

func (systemKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeyringClient stores secrets in the OS keychain (macOS Keychain or Linux
// Secret Service). The keychain has no enumeration API, so a local JSON
// index file tracks which keys this tool has written.
type KeyringClient struct {
	service   string
	indexPath string
	api       KeyringAPI
	logger    *logging.Logger
	mu        sync.Mutex
}

// KeyringOption is a functional option for configuring the keyring backend.
type KeyringOption func(*KeyringClient)

// WithKeyringAPI sets a custom keychain implementation (for testing)
func WithKeyringAPI(api KeyringAPI) KeyringOption {
	return func(c *KeyringClient) {
		c.api = api
	}
}

// NewKeyringClient creates an OS keychain vault backend.
func NewKeyringClient(vaultConfig map[string]interface{}, logger *logging.Logger, opts ...KeyringOption) (*KeyringClient, error) {
	service := defaultKeyringService
	if s, ok := vaultConfig["service"].(string); ok && s != "" {
		service = s
	}

	indexDir, _ := vaultConfig["index_dir"].(string)
	if indexDir == "" {
		indexDir = indexDirDefault()
	}

	c := &KeyringClient{
		service:   service,
		indexPath: filepath.Join(indexDir, "keyring-index.json"),
		api:       systemKeyring{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func indexDirDefault() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "credsync", "vault")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "credsync", "vault")
	}
	return filepath.Join(os.TempDir(), "credsync", "vault")
}

// Get reads a secret, reporting found=false for unknown keys.
func (c *KeyringClient) Get(_ context.Context, key string) (string, bool, error) {
	value, err := c.api.Get(c.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read keychain entry %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a secret and records the key in the index.
func (c *KeyringClient) Set(_ context.Context, key, value string) error {
	if err := c.api.Set(c.service, key, value); err != nil {
		return fmt.Errorf("failed to write keychain entry %s: %w", key, err)
	}
	if err := c.indexAdd(key); err != nil {
		// The secret is stored; a stale index only affects listing.
		c.logger.Warn("failed to update keyring index: %v", err)
	}
	return nil
}

// Delete removes a secret and its index entry. An absent key succeeds.
func (c *KeyringClient) Delete(_ context.Context, key string) error {
	err := c.api.Delete(c.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keychain entry %s: %w", key, err)
	}
	if err := c.indexRemove(key); err != nil {
		c.logger.Warn("failed to update keyring index: %v", err)
	}
	return nil
}

// List returns indexed keys under a prefix.
func (c *KeyringClient) List(_ context.Context, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.readIndex()
	if err != nil {
		return nil, err
	}

	var keys []string
	for key := range index {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *KeyringClient) indexAdd(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.readIndex()
	if err != nil {
		return err
	}
	index[key] = true
	return c.writeIndex(index)
}

func (c *KeyringClient) indexRemove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, err := c.readIndex()
	if err != nil {
		return err
	}
	delete(index, key)
	return c.writeIndex(index)
}

func (c *KeyringClient) readIndex() (map[string]bool, error) {
	data, err := os.ReadFile(c.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]bool), nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}

	var index map[string]bool
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode keyring index: %w", err)
	}
	return index, nil
}

func (c *KeyringClient) writeIndex(index map[string]bool) error {
	if err := os.MkdirAll(filepath.Dir(c.indexPath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.indexPath, data, 0600)
}
