package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewUnenrollCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unenroll <user-id> <store-name>",
		Short: "Remove a user's enrollment in a backing store",
		Long: `Drop one store enrollment from the user's directory entry. The store's
own record is not touched; the store simply stops receiving credential
updates. Removing an enrollment that does not exist succeeds.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, storeName := args[0], args[1]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			entry, err := rt.directory.RemoveBackingStore(userID, storeName)
			if err != nil {
				return err
			}

			if rt.mirror.Enabled() {
				if err := rt.mirror.Delete(context.Background(), userID, storeName); err != nil {
					cfg.Logger.Warn("failed to clear vault mirror for %s/%s: %v", userID, storeName, err)
				}
			}

			cfg.Logger.Info("✓ %s unenrolled from %s", userID, storeName)
			fmt.Printf("%s remains enrolled in %d store(s)\n", userID, len(entry.BackingStores))
			return nil
		},
	}

	return cmd
}
