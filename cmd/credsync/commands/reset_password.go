package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewResetPasswordCommand(cfg *config.Config) *cobra.Command {
	var (
		adminID string
		reason  string
	)

	cmd := &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Reset a user's password without proof of the old one",
		Long: `Set a new password on every enrolled store without verifying the
current one. The administrator performing the reset is recorded in the
audit trail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			if adminID == "" {
				return fmt.Errorf("--admin is required for a password reset")
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			newPassword, err := promptPassword("New password", cfg.NonInteractive)
			if err != nil {
				return err
			}

			result, err := rt.manager.ResetPassword(context.Background(), userID, adminID, reason, newPassword)
			if err != nil {
				return err
			}

			printSyncResult(cfg, result)
			if !result.Sync.Success {
				return fmt.Errorf("%d of %d stores failed; run 'credsync sync %s' after the stores recover",
					len(result.Sync.FailedStores), result.Sync.TotalCount, userID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminID, "admin", "", "Administrator performing the reset (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the reset was needed, e.g. a ticket reference")

	return cmd
}
