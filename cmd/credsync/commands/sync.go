package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewSyncCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <user-id>",
		Short: "Re-push the current credential to every enrolled store",
		Long: `Read the credential held by the authoritative store and push it to
every store the user is enrolled in. Use this to bring stores that
failed during a previous change-password or reset-password back in
sync without asking for the password again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			result, err := rt.manager.Resync(context.Background(), userID)
			if err != nil {
				return err
			}

			printFanOut(cfg, result)
			if !result.Success {
				return fmt.Errorf("%d of %d stores still failing", len(result.FailedStores), result.TotalCount)
			}
			return nil
		},
	}

	return cmd
}
