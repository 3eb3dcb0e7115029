package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
	credserrors "github.com/credsync/credsync/internal/errors"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check store connectivity and configuration",
		Long: `Verify that the configuration is valid and every backing store is
reachable with the configured system credentials.

This command checks:
- Configuration file validity
- System credentials for each store
- Store authentication and connectivity
- Vault mirror configuration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Logger.Info("Checking credsync configuration...")
			rt, err := buildRuntime(cfg)
			if err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return err
			}
			defer rt.registry.Close()
			cfg.Logger.Info("✓ Configuration loaded successfully")

			ctx := context.Background()
			results := make([]storeHealth, 0, len(cfg.Definition.Stores))

			for _, name := range cfg.StoreNames() {
				storeCfg, _ := cfg.GetStore(name)
				health := storeHealth{Name: name, Type: storeCfg.Type}

				client, err := rt.registry.Get(name)
				if err != nil {
					health.Status = "error"
					health.Error = err.Error()
					results = append(results, health)
					continue
				}

				if err := client.Authenticate(ctx); err != nil {
					health.Status = "error"
					health.Error = err.Error()
					health.Suggestions = storeSuggestions(storeCfg.Type, name)
				} else {
					health.Status = "healthy"
					health.Message = "Store is reachable"
				}
				results = append(results, health)
			}

			displayStoreHealth(results, verbose)

			if cfg.Definition.Vault != nil {
				if rt.mirror.Enabled() {
					cfg.Logger.Info("✓ Vault mirror configured (%s)", cfg.Definition.Vault.Type)
				} else {
					cfg.Logger.Warn("Vault mirror configured but backend unavailable")
				}
			} else {
				cfg.Logger.Info("Vault mirror not configured (optional)")
			}

			healthy := 0
			for _, result := range results {
				if result.Status == "healthy" {
					healthy++
				}
			}

			fmt.Printf("\nSummary: %d/%d stores healthy\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some stores are not healthy")
			}

			cfg.Logger.Info("✓ All systems operational!")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for failing stores")

	return cmd
}

// storeHealth is one backing store's connectivity check result.
type storeHealth struct {
	Name        string
	Type        string
	Status      string
	Error       string
	Message     string
	Suggestions []string
}

func displayStoreHealth(results []storeHealth, verbose bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "STORE\tTYPE\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		message := result.Message
		if result.Error != "" {
			message = result.Error
		}

		switch result.Status {
		case "healthy":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "? " + status
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Name, result.Type, status, message)
	}

	_ = w.Flush()

	if verbose {
		for _, result := range results {
			if result.Status == "error" && len(result.Suggestions) > 0 {
				fmt.Printf("\n%s (%s) suggestions:\n", result.Name, result.Type)
				for _, suggestion := range result.Suggestions {
					fmt.Printf("  • %s\n", suggestion)
				}
			}
		}
	}
}

// storeSuggestions returns likely fixes for a store that failed its check.
func storeSuggestions(storeType, name string) []string {
	segment := credserrors.EnvSegment(name)
	suggestions := []string{
		fmt.Sprintf("Set CREDSYNC_STORE_%s_USERNAME and CREDSYNC_STORE_%s_PASSWORD, or the CREDSYNC_SYSTEM_* fallbacks", segment, segment),
	}

	switch storeType {
	case "sql":
		suggestions = append(suggestions,
			"Check the dsn in the store configuration",
			"Verify the database is accepting connections")
	case "http":
		suggestions = append(suggestions,
			"Check the base_url in the store configuration",
			"Verify the service account can open a session")
	}
	return suggestions
}
