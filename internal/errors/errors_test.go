package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeakSecretError_Message(t *testing.T) {
	t.Parallel()

	err := WeakSecretError{Length: 5}
	assert.Contains(t, err.Error(), "5 characters")
	assert.Contains(t, err.Error(), "minimum is 8")
}

func TestStoreError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("connection refused")
	err := StoreError{Store: "ldap-main", Op: "update", Transient: true, Err: inner}

	assert.Contains(t, err.Error(), "ldap-main")
	assert.Contains(t, err.Error(), "transient")
	assert.Equal(t, inner, err.Unwrap())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout text", fmt.Errorf("request timeout after 30s"), true},
		{"connection reset", fmt.Errorf("read: connection reset by peer"), true},
		{"rate limited", fmt.Errorf("429 Too Many Requests"), true},
		{"plain rejection", fmt.Errorf("record does not exist"), false},
		{"transient store error", StoreError{Store: "a", Op: "update", Transient: true, Err: fmt.Errorf("boom")}, true},
		{"definitive store error", StoreError{Store: "a", Op: "update", Transient: false, Err: fmt.Errorf("timeout")}, false},
		{"wrapped transient store error", fmt.Errorf("apply: %w", StoreError{Store: "a", Op: "update", Transient: true, Err: fmt.Errorf("x")}), true},
		{"missing credentials", MissingSystemCredentialsError{StoreName: "ldap"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestEnvSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LDAP_MAIN", EnvSegment("ldap-main"))
	assert.Equal(t, "CRM", EnvSegment("crm"))
	assert.Equal(t, "STORE_2", EnvSegment("store.2"))
}

func TestMissingSystemCredentialsError_NamesEnvVars(t *testing.T) {
	t.Parallel()

	err := MissingSystemCredentialsError{StoreName: "ldap-main"}
	assert.Contains(t, err.Error(), "CREDSYNC_STORE_LDAP_MAIN_USERNAME")
	assert.Contains(t, err.Error(), "CREDSYNC_SYSTEM_")
}
