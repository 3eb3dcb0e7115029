package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewChangePasswordCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-password <user-id>",
		Short: "Change a user's password across all enrolled stores",
		Long: `Verify the user's current password against the authoritative store,
then hash the new password and push it to every enrolled backing store.

The current and new passwords are prompted without echo. With
--non-interactive they are read as two lines from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			current, err := promptPassword("Current password", cfg.NonInteractive)
			if err != nil {
				return err
			}
			newPassword, err := promptPassword("New password", cfg.NonInteractive)
			if err != nil {
				return err
			}

			result, err := rt.manager.ChangePassword(context.Background(), userID, current, newPassword)
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

	return cmd
}
