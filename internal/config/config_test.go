package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credserrors "github.com/credsync/credsync/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestConfig_Load_Valid(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, `
version: 0
stores:
  crm-db:
    type: sql
    authoritative: true
    driver: postgres
    dsn: postgres://localhost/crm
  legacy-portal:
    type: http
    timeout_ms: 5000
    base_url: https://portal.internal
sync:
  max_concurrent: 2
  max_attempts: 5
vault:
  type: keyring
`)}

	require.NoError(t, cfg.Load())
	require.NotNil(t, cfg.Definition)
	assert.Len(t, cfg.Definition.Stores, 2)

	store, err := cfg.GetStore("crm-db")
	require.NoError(t, err)
	assert.Equal(t, "sql", store.Type)
	assert.Equal(t, "postgres", store.ConfigString("driver"))
	assert.True(t, store.Authoritative)

	name, err := cfg.AuthoritativeStore()
	require.NoError(t, err)
	assert.Equal(t, "crm-db", name)

	assert.Equal(t, []string{"crm-db", "legacy-portal"}, cfg.StoreNames())
	assert.Equal(t, 2, cfg.Definition.Sync.GetMaxConcurrent())
	assert.Equal(t, 5, cfg.Definition.Sync.GetMaxAttempts())
}

func TestConfig_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	err := cfg.Load()

	var cfgErr credserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
}

func TestConfig_Load_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, "stores:\n  bad: [unclosed")}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestConfig_Load_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, "version: 7\nstores:\n  a:\n    type: sql\n")}
	err := cfg.Load()

	var cfgErr credserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "version", cfgErr.Field)
}

func TestConfig_Load_NoStores(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, "version: 0\nstores: {}\n")}
	err := cfg.Load()
	require.Error(t, err)
}

func TestConfig_Load_UnknownStoreType(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, `
stores:
  weird:
    type: carrier-pigeon
`)}
	err := cfg.Load()

	var cfgErr credserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Suggestion, "sql")
}

func TestConfig_Load_TwoAuthoritativeStores(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, `
stores:
  a:
    type: sql
    authoritative: true
  b:
    type: http
    authoritative: true
`)}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authoritative")
}

func TestConfig_Load_UnknownVaultType(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, `
stores:
  a:
    type: sql
vault:
  type: floppy-disk
`)}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault")
}

func TestConfig_AuthoritativeStore_NoneMarked(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, "stores:\n  a:\n    type: sql\n")}
	require.NoError(t, cfg.Load())

	_, err := cfg.AuthoritativeStore()
	var cfgErr credserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Suggestion, "authoritative: true")
}

func TestConfig_GetStore_Unknown(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: writeConfig(t, "stores:\n  crm:\n    type: sql\n")}
	require.NoError(t, cfg.Load())

	_, err := cfg.GetStore("nope")
	var cfgErr credserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Suggestion, "crm")
}

func TestStoreConfig_Timeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "30s", StoreConfig{}.Timeout().String())
	assert.Equal(t, "5s", StoreConfig{TimeoutMs: 5000}.Timeout().String())
}

func TestSyncConfig_Defaults(t *testing.T) {
	t.Parallel()

	var s SyncConfig
	assert.Equal(t, 4, s.GetMaxConcurrent())
	assert.Equal(t, 3, s.GetMaxAttempts())
	assert.Equal(t, "1s", s.GetBackoff().String())
	assert.Equal(t, "50ms", SyncConfig{BackoffMs: 50}.GetBackoff().String())
	assert.Equal(t, "30s", CacheConfig{}.GetTTL().String())
}

func TestSystemCredentials(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv

	t.Run("store specific pair wins", func(t *testing.T) {
		t.Setenv("CREDSYNC_STORE_CRM_DB_USERNAME", "svc-crm")
		t.Setenv("CREDSYNC_STORE_CRM_DB_PASSWORD", "crm-pass")
		t.Setenv("CREDSYNC_SYSTEM_USERNAME", "svc-shared")
		t.Setenv("CREDSYNC_SYSTEM_PASSWORD", "shared-pass")

		user, pass, err := SystemCredentials("crm-db")
		require.NoError(t, err)
		assert.Equal(t, "svc-crm", user)
		assert.Equal(t, "crm-pass", pass.Reveal())
	})

	t.Run("falls back to shared pair", func(t *testing.T) {
		t.Setenv("CREDSYNC_SYSTEM_USERNAME", "svc-shared")
		t.Setenv("CREDSYNC_SYSTEM_PASSWORD", "shared-pass")

		user, pass, err := SystemCredentials("legacy-portal")
		require.NoError(t, err)
		assert.Equal(t, "svc-shared", user)
		assert.Equal(t, "shared-pass", pass.Reveal())
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("CREDSYNC_SYSTEM_USERNAME", "")
		t.Setenv("CREDSYNC_SYSTEM_PASSWORD", "")

		_, _, err := SystemCredentials("legacy-portal")
		var missing credserrors.MissingSystemCredentialsError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "legacy-portal", missing.StoreName)
	})

	t.Run("partial pair is missing", func(t *testing.T) {
		t.Setenv("CREDSYNC_SYSTEM_USERNAME", "svc-shared")
		t.Setenv("CREDSYNC_SYSTEM_PASSWORD", "")

		_, _, err := SystemCredentials("legacy-portal")
		var missing credserrors.MissingSystemCredentialsError
		require.ErrorAs(t, err, &missing)
	})
}
