package vault

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// GCPClient stores secrets in Google Cloud Secret Manager. Secret IDs cannot
// contain slashes, so key segments are joined with a double dash on the way
// in and restored on the way out. Keys whose own segments contain a double
// dash do not round-trip through List.
type GCPClient struct {
	client    *secretmanager.Client
	projectID string
	logger    *logging.Logger
}

// NewGCPClient creates a GCP Secret Manager vault backend.
func NewGCPClient(vaultConfig map[string]interface{}, logger *logging.Logger) (*GCPClient, error) {
	projectID, _ := vaultConfig["project_id"].(string)
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, credserrors.ConfigError{
			Field:      "vault.project_id",
			Message:    "project_id is required for the GCP Secret Manager vault",
			Suggestion: "Set project_id in the vault config or the GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	var clientOpts []option.ClientOption
	if keyPath, ok := vaultConfig["service_account_key_path"].(string); ok && keyPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(keyPath))
	}

	client, err := secretmanager.NewClient(context.Background(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	return &GCPClient{
		client:    client,
		projectID: projectID,
		logger:    logger,
	}, nil
}

// secretID flattens a key into a valid secret ID.
func (c *GCPClient) secretID(key string) string {
	return strings.ReplaceAll(key, "/", "--")
}

// secretKey restores the canonical slash-separated key from a secret ID.
func secretKeyFromID(id string) string {
	return strings.ReplaceAll(id, "--", "/")
}

func (c *GCPClient) secretName(key string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", c.projectID, c.secretID(key))
}

// Get reads the latest secret version, reporting found=false for unknown keys.
func (c *GCPClient) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: c.secretName(key) + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read secret %s: %w", key, err)
	}
	return string(result.Payload.Data), true, nil
}

// Set creates the secret on first write and adds a new version on updates.
func (c *GCPClient) Set(ctx context.Context, key, value string) error {
	_, err := c.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", c.projectID),
		SecretId: c.secretID(key),
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to create secret %s: %w", key, err)
	}

	_, err = c.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  c.secretName(key),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	})
	if err != nil {
		return fmt.Errorf("failed to write secret %s: %w", key, err)
	}
	return nil
}

// Delete removes a secret and all its versions. An absent key succeeds.
func (c *GCPClient) Delete(ctx context.Context, key string) error {
	err := c.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{
		Name: c.secretName(key),
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}

// List returns the stored keys under a prefix, in canonical slash form.
func (c *GCPClient) List(ctx context.Context, prefix string) ([]string, error) {
	flatPrefix := c.secretID(prefix)

	it := c.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: fmt.Sprintf("projects/%s", c.projectID),
	})

	var keys []string
	for {
		secret, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list secrets: %w", err)
		}

		// Resource names look like projects/{p}/secrets/{id}.
		parts := strings.Split(secret.Name, "/")
		id := parts[len(parts)-1]
		if strings.HasPrefix(id, flatPrefix) {
			keys = append(keys, secretKeyFromID(id))
		}
	}
	return keys, nil
}

// Close releases the underlying gRPC connection.
func (c *GCPClient) Close() error {
	return c.client.Close()
}
