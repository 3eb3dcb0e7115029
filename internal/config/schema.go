package config

import (
	"encoding/json"
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	credserrors "github.com/credsync/credsync/internal/errors"
)

//go:embed credsync.schema.json
var configSchema []byte

// validateDefinition checks the parsed definition against the embedded JSON
// schema, plus the cross-field rules the schema cannot express.
func validateDefinition(def *Definition) error {
	jsonData, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return credserrors.ConfigError{
			Message:    fmt.Sprintf("configuration failed validation:\n  - %s", strings.Join(errorMessages, "\n  - ")),
			Suggestion: "Fix the listed fields in your credsync.yaml",
		}
	}

	authoritative := 0
	for name, store := range def.Stores {
		switch store.Type {
		case "sql", "http":
		default:
			return credserrors.ConfigError{
				Field:      fmt.Sprintf("stores.%s.type", name),
				Value:      store.Type,
				Message:    "unknown store type",
				Suggestion: "Supported store types: sql, http",
			}
		}
		if store.Authoritative {
			authoritative++
		}
	}
	if authoritative > 1 {
		return credserrors.ConfigError{
			Field:      "stores",
			Message:    "more than one store is marked authoritative",
			Suggestion: "Mark exactly one store with 'authoritative: true'",
		}
	}

	if def.Vault != nil {
		switch def.Vault.Type {
		case "aws-secretsmanager", "gcp-secretmanager", "azure-keyvault", "keyring":
		default:
			return credserrors.ConfigError{
				Field:      "vault.type",
				Value:      def.Vault.Type,
				Message:    "unknown vault type",
				Suggestion: "Supported vault types: aws-secretsmanager, gcp-secretmanager, azure-keyvault, keyring",
			}
		}
	}

	return nil
}
