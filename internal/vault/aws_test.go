package vault

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credsync/credsync/internal/logging"
)

// mockSecretsManager is an in-memory SecretsManagerClientAPI.
type mockSecretsManager struct {
	secrets map[string]string
}

func newMockSecretsManager() *mockSecretsManager {
	return &mockSecretsManager{secrets: make(map[string]string)}
}

func (m *mockSecretsManager) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	value, ok := m.secrets[*params.SecretId]
	if !ok {
		return nil, &types.ResourceNotFoundException{}
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         params.SecretId,
		SecretString: aws.String(value),
	}, nil
}

func (m *mockSecretsManager) CreateSecret(_ context.Context, params *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if _, exists := m.secrets[*params.Name]; exists {
		return nil, &types.ResourceExistsException{}
	}
	m.secrets[*params.Name] = *params.SecretString
	return &secretsmanager.CreateSecretOutput{Name: params.Name}, nil
}

func (m *mockSecretsManager) UpdateSecret(_ context.Context, params *secretsmanager.UpdateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	if _, exists := m.secrets[*params.SecretId]; !exists {
		return nil, &types.ResourceNotFoundException{}
	}
	m.secrets[*params.SecretId] = *params.SecretString
	return &secretsmanager.UpdateSecretOutput{Name: params.SecretId}, nil
}

func (m *mockSecretsManager) DeleteSecret(_ context.Context, params *secretsmanager.DeleteSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	if _, exists := m.secrets[*params.SecretId]; !exists {
		return nil, &types.ResourceNotFoundException{}
	}
	delete(m.secrets, *params.SecretId)
	return &secretsmanager.DeleteSecretOutput{Name: params.SecretId}, nil
}

func (m *mockSecretsManager) ListSecrets(_ context.Context, _ *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	out := &secretsmanager.ListSecretsOutput{}
	for name := range m.secrets {
		out.SecretList = append(out.SecretList, types.SecretListEntry{Name: aws.String(name)})
	}
	return out, nil
}

func newTestAWSClient(t *testing.T) (*AWSClient, *mockSecretsManager) {
	t.Helper()

	mock := newMockSecretsManager()
	client, err := NewAWSClient(map[string]interface{}{"region": "eu-west-1"}, logging.New(false, true), WithSecretsManagerClient(mock))
	require.NoError(t, err)
	return client, mock
}

func TestAWSClient_SetCreatesThenUpdates(t *testing.T) {
	t.Parallel()

	client, mock := newTestAWSClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "credsync/alice/crm", "v1"))
	require.NoError(t, client.Set(ctx, "credsync/alice/crm", "v2"))

	assert.Equal(t, "v2", mock.secrets["credsync/alice/crm"])
	assert.Len(t, mock.secrets, 1)
}

func TestAWSClient_GetAbsent(t *testing.T) {
	t.Parallel()

	client, _ := newTestAWSClient(t)

	_, found, err := client.Get(context.Background(), "credsync/ghost/crm")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAWSClient_GetRoundTrip(t *testing.T) {
	t.Parallel()

	client, _ := newTestAWSClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "credsync/alice/crm", "hunter22"))

	value, found, err := client.Get(ctx, "credsync/alice/crm")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hunter22", value)
}

func TestAWSClient_DeleteIdempotent(t *testing.T) {
	t.Parallel()

	client, _ := newTestAWSClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "credsync/alice/crm", "v1"))
	require.NoError(t, client.Delete(ctx, "credsync/alice/crm"))
	require.NoError(t, client.Delete(ctx, "credsync/alice/crm"))
}

func TestAWSClient_ListFiltersByPrefix(t *testing.T) {
	t.Parallel()

	client, _ := newTestAWSClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "credsync/alice/crm", "a"))
	require.NoError(t, client.Set(ctx, "credsync/alice/portal", "b"))
	require.NoError(t, client.Set(ctx, "credsync/bob/crm", "c"))

	keys, err := client.List(ctx, "credsync/alice/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"credsync/alice/crm", "credsync/alice/portal"}, keys)
}
