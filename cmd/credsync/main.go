package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/cmd/credsync/commands"
	"github.com/credsync/credsync/internal/config"
	"github.com/credsync/credsync/internal/logging"
	"github.com/credsync/credsync/internal/metrics"
	"github.com/credsync/credsync/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer secure.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
		enableMetrics  bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "credsync",
		Short: "Keep one credential consistent across every system that stores it",
		Long: `credsync hashes a user's password once and pushes the hash to every
backing store the user is enrolled in, with per-store retries, an
append-only audit trail, and an optional secret-vault mirror.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive

			if enableMetrics {
				metrics.InitMetrics()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "credsync.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")
	rootCmd.PersistentFlags().BoolVar(&enableMetrics, "metrics", false, "Register Prometheus metrics")

	rootCmd.AddCommand(
		commands.NewChangePasswordCommand(cfg),
		commands.NewResetPasswordCommand(cfg),
		commands.NewSyncCommand(cfg),
		commands.NewEnrollCommand(cfg),
		commands.NewUnenrollCommand(cfg),
		commands.NewOffboardCommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewHistoryCommand(cfg),
		commands.NewVaultCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
