package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/credsync/credsync/internal/config"
	"github.com/credsync/credsync/internal/logging"
)

// newTestConfig writes a credsync.yaml into a temp dir, points the data
// directory at another temp dir, and returns a config for command tests.
func newTestConfig(t *testing.T, yamlBody string) *config.Config {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "credsync.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlBody), 0o600))
	t.Setenv("CREDSYNC_DATA_DIR", t.TempDir())

	return &config.Config{
		Path:   configPath,
		Logger: logging.New(false, true),
	}
}

// singleStoreConfig is a minimal valid configuration with one authoritative
// http store pointing at baseURL.
func singleStoreConfig(baseURL string) string {
	return fmt.Sprintf(`version: 0
stores:
  portal:
    type: http
    authoritative: true
    base_url: %s
sync:
  backoff_ms: 10
`, baseURL)
}

// captureOutput runs the command and returns everything written to stdout.
// Execution errors are ignored so failing commands still yield their output.
func captureOutput(t *testing.T, cmd *cobra.Command, args []string) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	cmd.SetArgs(args)
	_ = cmd.Execute()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// feedStdin replaces os.Stdin with a pipe carrying input for the duration of
// the test.
func feedStdin(t *testing.T, input string) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	old := os.Stdin
	os.Stdin = r
	stdinReader = nil
	t.Cleanup(func() {
		os.Stdin = old
		stdinReader = nil
	})
}
