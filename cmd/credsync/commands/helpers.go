package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/credsync/credsync/internal/config"
	"github.com/credsync/credsync/internal/directory"
	"github.com/credsync/credsync/internal/hasher"
	"github.com/credsync/credsync/internal/lifecycle"
	"github.com/credsync/credsync/internal/logging"
	"github.com/credsync/credsync/internal/secure"
	"github.com/credsync/credsync/internal/store"
	"github.com/credsync/credsync/internal/syncer"
	"github.com/credsync/credsync/internal/vault"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// stdinReader is shared across prompts so buffered lines are not lost
// between consecutive reads.
var stdinReader *bufio.Reader

// runtime bundles the wired components a command works with.
type runtime struct {
	directory directory.Store
	registry  *store.Registry
	manager   *lifecycle.Manager
	mirror    *vault.Mirror
	logger    *logging.Logger
}

// buildRuntime loads the configuration and wires the full stack.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	dataDir := directory.DefaultDataDir()
	fileStore := directory.NewFileStore(dataDir)
	dir := directory.NewCachedStore(fileStore, directory.WithTTL(cfg.Definition.Cache.GetTTL()))

	registry := store.NewRegistry(cfg, cfg.Logger)

	syncCfg := cfg.Definition.Sync
	propagator := syncer.NewPropagator(syncCfg.GetMaxAttempts(), syncCfg.GetBackoff(), cfg.Logger)
	synchronizer := syncer.NewSynchronizer(dir, registry, propagator, syncCfg.GetMaxConcurrent(), cfg.Logger)

	backend, err := vault.New(cfg.Definition.Vault, cfg.Logger)
	if err != nil {
		return nil, err
	}
	mirror := vault.NewMirror(backend, dir, cfg.Logger)

	authoritative, err := cfg.AuthoritativeStore()
	if err != nil {
		return nil, err
	}

	manager := lifecycle.NewManager(
		hasher.New(cfg.Logger),
		dir,
		synchronizer,
		registry,
		mirror,
		authoritative,
		cfg.Logger,
	)

	return &runtime{
		directory: dir,
		registry:  registry,
		manager:   manager,
		mirror:    mirror,
		logger:    cfg.Logger,
	}, nil
}

// promptPassword reads a password without echo from a terminal, or a single
// line from stdin when input is piped or --non-interactive is set.
func promptPassword(prompt string, nonInteractive bool) (logging.Secret, error) {
	fd := int(os.Stdin.Fd())

	if !nonInteractive && term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", prompt)
		raw, err := readPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		// Seal the raw bytes immediately; the enclave copy is encrypted
		// and mlocked until the value is actually needed.
		pass := secure.NewPassphrase(raw)
		defer pass.Destroy()

		var secret logging.Secret
		if err := pass.Use(func(plaintext []byte) error {
			secret = logging.Secret(plaintext)
			return nil
		}); err != nil {
			return "", err
		}
		return secret, nil
	}

	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return logging.Secret(strings.TrimRight(line, "\r\n")), nil
}
