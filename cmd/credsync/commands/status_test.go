package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCommand_ShowsEnrollmentTable(t *testing.T) {
	cfg := newTestConfig(t, singleStoreConfig("http://127.0.0.1:1"))

	enroll := NewEnrollCommand(cfg)
	enroll.SetArgs([]string{"alice", "portal", "--record-id", "emp-42"})
	require.NoError(t, enroll.Execute())

	cmd := NewStatusCommand(cfg)
	output := captureOutput(t, cmd, []string{"alice"})

	assert.Contains(t, output, "STORE")
	assert.Contains(t, output, "portal")
	assert.Contains(t, output, "emp-42")
}

func TestStatusCommand_UnknownUser(t *testing.T) {
	cfg := newTestConfig(t, singleStoreConfig("http://127.0.0.1:1"))

	cmd := NewStatusCommand(cfg)
	cmd.SetArgs([]string{"ghost"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
