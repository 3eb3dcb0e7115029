package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// credentialServer is an in-memory management API with one user record.
type credentialServer struct {
	mu   sync.Mutex
	hash string

	*httptest.Server
}

func newCredentialServer(t *testing.T, seedPassword string) *credentialServer {
	t.Helper()

	seed, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cs := &credentialServer{hash: string(seed)}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/session":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"tok"}`))
		case r.URL.Path == "/api/v1/users/emp-42/credential":
			cs.mu.Lock()
			defer cs.mu.Unlock()
			switch r.Method {
			case http.MethodGet:
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"password_hash": cs.hash})
			case http.MethodPut:
				var body struct {
					PasswordHash string `json:"password_hash"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				cs.hash = body.PasswordHash
				w.WriteHeader(http.StatusOK)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(cs.Server.Close)
	return cs
}

func (cs *credentialServer) currentHash() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hash
}

func TestChangePasswordCommand_EndToEnd(t *testing.T) {
	server := newCredentialServer(t, "old-password-1")

	cfg := newTestConfig(t, singleStoreConfig(server.URL))
	cfg.NonInteractive = true
	t.Setenv("CREDSYNC_STORE_PORTAL_USERNAME", "svc")
	t.Setenv("CREDSYNC_STORE_PORTAL_PASSWORD", "svc-secret")

	enroll := NewEnrollCommand(cfg)
	enroll.SetArgs([]string{"alice", "portal", "--record-id", "emp-42"})
	require.NoError(t, enroll.Execute())

	feedStdin(t, "old-password-1\nnew-password-9\n")

	cmd := NewChangePasswordCommand(cfg)
	output := captureOutput(t, cmd, []string{"alice"})

	assert.Contains(t, output, "1/1 stores updated")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(server.currentHash()), []byte("new-password-9")))
}

func TestChangePasswordCommand_WrongCurrentPassword(t *testing.T) {
	server := newCredentialServer(t, "old-password-1")

	cfg := newTestConfig(t, singleStoreConfig(server.URL))
	cfg.NonInteractive = true
	t.Setenv("CREDSYNC_STORE_PORTAL_USERNAME", "svc")
	t.Setenv("CREDSYNC_STORE_PORTAL_PASSWORD", "svc-secret")

	enroll := NewEnrollCommand(cfg)
	enroll.SetArgs([]string{"alice", "portal", "--record-id", "emp-42"})
	require.NoError(t, enroll.Execute())

	feedStdin(t, "not-the-password\nnew-password-9\n")

	cmd := NewChangePasswordCommand(cfg)
	cmd.SetArgs([]string{"alice"})
	err := cmd.Execute()

	require.Error(t, err)
	// The stored credential is untouched.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(server.currentHash()), []byte("old-password-1")))
}

func TestChangePasswordCommand_UnknownUser(t *testing.T) {
	cfg := newTestConfig(t, singleStoreConfig("http://127.0.0.1:1"))
	cfg.NonInteractive = true

	feedStdin(t, "old-password-1\nnew-password-9\n")

	cmd := NewChangePasswordCommand(cfg)
	cmd.SetArgs([]string{"ghost"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
