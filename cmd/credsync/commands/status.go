package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
	"github.com/credsync/credsync/internal/directory"
	credserrors "github.com/credsync/credsync/internal/errors"
)

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show a user's enrollments and per-store sync state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			entry, err := rt.directory.GetUser(userID)
			if err != nil {
				return err
			}
			if entry == nil {
				return credserrors.UserNotFoundError{UserID: userID}
			}

			fmt.Printf("User: %s\n", entry.UserID)
			fmt.Printf("Created: %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Updated: %s\n\n", entry.UpdatedAt.Format("2006-01-02 15:04:05"))

			if len(entry.BackingStores) == 0 {
				fmt.Println("No store enrollments")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "STORE\tRECORD\tSTATUS\tENROLLED\n")
			_, _ = fmt.Fprintf(w, "-----\t------\t------\t--------\n")
			for _, enrollment := range entry.BackingStores {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					enrollment.StoreName,
					enrollment.ExternalRecordID,
					statusMarker(enrollment.Status),
					enrollment.EnrolledAt.Format("2006-01-02 15:04:05"))
			}
			_ = w.Flush()

			return nil
		},
	}

	return cmd
}

func statusMarker(status directory.StoreStatus) string {
	switch status {
	case directory.StoreStatusSynced:
		return "✓ synced"
	case directory.StoreStatusFailed:
		return "✗ failed"
	default:
		return "? " + string(status)
	}
}
