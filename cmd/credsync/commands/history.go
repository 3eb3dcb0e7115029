package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
	"github.com/credsync/credsync/internal/directory"
)

func NewHistoryCommand(cfg *config.Config) *cobra.Command {
	var (
		limit      int
		pruneOlder time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history [user-id]",
		Short: "Show the audit trail of credential operations",
		Long: `Show audited credential operations, newest first. With a user ID only
that user's history is shown; without one the history spans all users.

Use --prune to delete entries older than a duration instead of listing,
e.g. --prune 2160h for a 90-day retention.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			if pruneOlder > 0 {
				if err := rt.directory.PruneAudit(pruneOlder); err != nil {
					return err
				}
				cfg.Logger.Info("✓ pruned audit entries older than %s", pruneOlder)
				return nil
			}

			var entries []directory.AuditEntry
			if len(args) == 1 {
				entries, err = rt.directory.GetAudit(args[0], limit)
			} else {
				entries, err = rt.directory.GetAllAudit(limit)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No audit entries found")
				return nil
			}

			if jsonOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}

			printAuditTable(entries)
			fmt.Printf("\nShowing %d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show (0 for all)")
	cmd.Flags().DurationVar(&pruneOlder, "prune", 0, "Delete entries older than this duration instead of listing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit entries as JSON")

	return cmd
}

func printAuditTable(entries []directory.AuditEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "TIMESTAMP\tUSER\tOPERATION\tSTATUS\tSTORES\tADMIN\n")
	_, _ = fmt.Fprintf(w, "---------\t----\t---------\t------\t------\t-----\n")

	for _, entry := range entries {
		stores := "-"
		if len(entry.PerStoreOutcomes) > 0 {
			ok := 0
			for _, outcome := range entry.PerStoreOutcomes {
				if outcome.Success {
					ok++
				}
			}
			stores = fmt.Sprintf("%d/%d", ok, len(entry.PerStoreOutcomes))
		}

		admin := entry.AdminID
		if admin == "" {
			admin = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.UserID,
			entry.Operation,
			entry.Status,
			stores,
			admin)
	}

	_ = w.Flush()
}
