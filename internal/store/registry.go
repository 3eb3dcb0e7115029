package store

import (
	"sync"

	"github.com/credsync/credsync/internal/config"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// Registry builds and caches store clients by name. Clients are created
// lazily on first use so a misconfigured store only fails the operations
// that touch it.
type Registry struct {
	cfg    *config.Config
	logger *logging.Logger

	mu      sync.Mutex
	clients map[string]Client
}

// NewRegistry creates a client registry over the loaded configuration.
func NewRegistry(cfg *config.Config, logger *logging.Logger) *Registry {
	return &Registry{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]Client),
	}
}

// Get returns the client for a configured store, creating it on first use.
func (r *Registry) Get(name string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[name]; ok {
		return client, nil
	}

	storeCfg, err := r.cfg.GetStore(name)
	if err != nil {
		return nil, err
	}

	client, err := r.build(name, storeCfg)
	if err != nil {
		return nil, err
	}

	r.clients[name] = client
	return client, nil
}

// Register injects a pre-built client, replacing any cached one. Tests use
// this to run the synchronizer against fakes.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Close releases every cached client.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, client := range r.clients {
		if err := client.Close(); err != nil {
			r.logger.Warn("store %s: close failed: %v", name, err)
		}
		delete(r.clients, name)
	}
}

func (r *Registry) build(name string, storeCfg config.StoreConfig) (Client, error) {
	switch storeCfg.Type {
	case "sql":
		return NewSQLClient(name, storeCfg, r.logger)
	case "http":
		username, password, err := config.SystemCredentials(name)
		if err != nil {
			return nil, err
		}
		return NewHTTPClient(name, storeCfg, username, password, r.logger)
	default:
		return nil, credserrors.ConfigError{
			Field:      "type",
			Value:      storeCfg.Type,
			Message:    "unknown store type",
			Suggestion: "Supported store types: sql, http",
		}
	}
}
