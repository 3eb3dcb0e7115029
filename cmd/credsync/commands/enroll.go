package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewEnrollCommand(cfg *config.Config) *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "enroll <user-id> <store-name>",
		Short: "Enroll a user in a backing store",
		Long: `Register a user in a configured backing store. The directory entry is
created on first enrollment. New enrollments start in the pending state
and come in sync on the next password operation, or with 'credsync sync'.

By default the store-side record is looked up by the user ID; pass
--record-id when the store knows the user under a different key.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, storeName := args[0], args[1]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			// Fail on unknown stores before touching the directory.
			if _, err := cfg.GetStore(storeName); err != nil {
				return err
			}

			if recordID == "" {
				recordID = userID
			}

			entry, err := rt.manager.Enroll(userID, storeName, recordID)
			if err != nil {
				return err
			}

			cfg.Logger.Info("✓ %s enrolled in %s (record %s)", userID, storeName, recordID)
			fmt.Printf("%s is now enrolled in %d store(s)\n", userID, len(entry.BackingStores))
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Store-side record identifier (defaults to the user ID)")

	return cmd
}
