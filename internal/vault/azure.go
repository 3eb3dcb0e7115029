package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// KeyVaultClientAPI defines the Azure Key Vault operations used by the vault
// backend. This allows for mocking in tests.
// Note: NewListSecretPropertiesPager is excluded from the interface because
// pagers cannot be meaningfully mocked; List falls back to the real client.
type KeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
}

// AzureClient stores secrets in Azure Key Vault. Secret names cannot contain
// slashes, so key segments are joined with a double dash on the way in and
// restored on the way out.
type AzureClient struct {
	client   KeyVaultClientAPI
	vaultURL string
	logger   *logging.Logger
}

// AzureOption is a functional option for configuring the Azure backend.
type AzureOption func(*AzureClient)

// WithKeyVaultClient sets a custom Key Vault client (for testing)
func WithKeyVaultClient(client KeyVaultClientAPI) AzureOption {
	return func(c *AzureClient) {
		c.client = client
	}
}

// NewAzureClient creates an Azure Key Vault vault backend.
func NewAzureClient(vaultConfig map[string]interface{}, logger *logging.Logger, opts ...AzureOption) (*AzureClient, error) {
	vaultURL, _ := vaultConfig["vault_url"].(string)

	c := &AzureClient{
		vaultURL: vaultURL,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		if vaultURL == "" {
			return nil, credserrors.ConfigError{
				Field:      "vault.vault_url",
				Message:    "vault_url is required for the Azure Key Vault vault",
				Suggestion: "Set vault_url to the Key Vault endpoint, e.g. https://myvault.vault.azure.net",
			}
		}

		cred, err := azureCredential(vaultConfig)
		if err != nil {
			return nil, err
		}

		client, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		c.client = client
	}

	return c, nil
}

// azureCredential picks a credential from the config: an explicit service
// principal when given, the default chain otherwise.
func azureCredential(vaultConfig map[string]interface{}) (azcore.TokenCredential, error) {
	tenantID, _ := vaultConfig["tenant_id"].(string)
	clientID, _ := vaultConfig["client_id"].(string)
	clientSecret, _ := vaultConfig["client_secret"].(string)

	if tenantID != "" && clientID != "" && clientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create service principal credential: %w", err)
		}
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return cred, nil
}

// secretName flattens a key into a valid Key Vault secret name. List
// restores the slash form with secretKeyFromID.
func (c *AzureClient) secretName(key string) string {
	return strings.ReplaceAll(key, "/", "--")
}

func isSecretNotFound(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "SecretNotFound") || strings.Contains(err.Error(), "404"))
}

// Get reads the latest secret version, reporting found=false for unknown keys.
func (c *AzureClient) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := c.client.GetSecret(ctx, c.secretName(key), "", nil)
	if err != nil {
		if isSecretNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read secret %s: %w", key, err)
	}
	if resp.Value == nil {
		return "", true, nil
	}
	return *resp.Value, true, nil
}

// Set writes a secret; Key Vault versions on every write.
func (c *AzureClient) Set(ctx context.Context, key, value string) error {
	_, err := c.client.SetSecret(ctx, c.secretName(key), azsecrets.SetSecretParameters{
		Value: to.Ptr(value),
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to write secret %s: %w", key, err)
	}
	return nil
}

// Delete removes a secret. An absent key succeeds.
func (c *AzureClient) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteSecret(ctx, c.secretName(key), nil)
	if err != nil {
		if isSecretNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}

// List returns the stored keys under a prefix, in canonical slash form.
// Only available when the backend holds a real client; mocked clients get an
// empty result.
func (c *AzureClient) List(ctx context.Context, prefix string) ([]string, error) {
	realClient, ok := c.client.(*azsecrets.Client)
	if !ok {
		return nil, nil
	}

	flatPrefix := c.secretName(prefix)
	var keys []string

	pager := realClient.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list secrets: %w", err)
		}
		for _, item := range page.Value {
			if item.ID == nil {
				continue
			}
			name := item.ID.Name()
			if strings.HasPrefix(name, flatPrefix) {
				keys = append(keys, secretKeyFromID(name))
			}
		}
	}
	return keys, nil
}
