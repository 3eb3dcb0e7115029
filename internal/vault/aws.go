package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/credsync/credsync/internal/logging"
)

// SecretsManagerClientAPI defines the AWS Secrets Manager operations used by
// the vault backend. This allows for mocking in tests.
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSClient stores secrets in AWS Secrets Manager.
type AWSClient struct {
	client   SecretsManagerClientAPI
	region   string
	endpoint string // Optional custom endpoint for LocalStack or testing
	logger   *logging.Logger
}

// AWSOption is a functional option for configuring the AWS backend.
type AWSOption func(*AWSClient)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSOption {
	return func(c *AWSClient) {
		c.client = client
	}
}

// NewAWSClient creates an AWS Secrets Manager vault backend.
func NewAWSClient(vaultConfig map[string]interface{}, logger *logging.Logger, opts ...AWSOption) (*AWSClient, error) {
	region := "us-east-1"
	if r, ok := vaultConfig["region"].(string); ok && r != "" {
		region = r
	}

	var endpoint string
	if e, ok := vaultConfig["endpoint"].(string); ok && e != "" {
		endpoint = e
	}

	var accessKeyID, secretAccessKey string
	if ak, ok := vaultConfig["access_key_id"].(string); ok && ak != "" {
		accessKeyID = ak
	}
	if sk, ok := vaultConfig["secret_access_key"].(string); ok && sk != "" {
		secretAccessKey = sk
	}

	c := &AWSClient{
		region:   region,
		endpoint: endpoint,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		var configOpts []func(*awsconfig.LoadOptions) error
		configOpts = append(configOpts, awsconfig.WithRegion(region))

		// Static credentials support LocalStack and testing setups.
		if accessKeyID != "" && secretAccessKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		c.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return c, nil
}

// Get reads a secret value, reporting found=false for unknown keys.
func (c *AWSClient) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := c.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(key),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read secret %s: %w", key, err)
	}
	if out.SecretString == nil {
		return "", true, nil
	}
	return *out.SecretString, true, nil
}

// Set creates the secret or updates it when it already exists.
func (c *AWSClient) Set(ctx context.Context, key, value string) error {
	_, err := c.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(key),
		SecretString: aws.String(value),
	})
	if err == nil {
		return nil
	}

	var exists *types.ResourceExistsException
	if !errors.As(err, &exists) {
		return fmt.Errorf("failed to create secret %s: %w", key, err)
	}

	_, err = c.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(key),
		SecretString: aws.String(value),
	})
	if err != nil {
		return fmt.Errorf("failed to update secret %s: %w", key, err)
	}
	return nil
}

// Delete removes a secret without a recovery window. An absent key succeeds.
func (c *AWSClient) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(key),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}

// List returns secret names under the given prefix.
func (c *AWSClient) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var nextToken *string

	for {
		out, err := c.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list secrets: %w", err)
		}

		for _, secret := range out.SecretList {
			if secret.Name != nil && strings.HasPrefix(*secret.Name, prefix) {
				keys = append(keys, *secret.Name)
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return keys, nil
}
