package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultGetCommand_NoBackendConfigured(t *testing.T) {
	cfg := newTestConfig(t, singleStoreConfig("http://127.0.0.1:1"))

	cmd := NewVaultCommand(cfg)
	cmd.SetArgs([]string{"get", "alice", "portal"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vault backend configured")
}

func TestVaultDeleteCommand_RequiresStoreOrAll(t *testing.T) {
	cfg := newTestConfig(t, singleStoreConfig("http://127.0.0.1:1"))

	cmd := NewVaultCommand(cfg)
	cmd.SetArgs([]string{"delete", "alice"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}
