package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewOffboardCommand(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "offboard <user-id>",
		Short: "Remove a user's directory entry and mirrored secrets",
		Long: `Delete the user's directory entry and clear their secrets from the
vault mirror. The audit history is retained. Credentials already held
by the backing stores are not touched; disable the accounts there
through the stores' own tooling.

Offboarding is idempotent: offboarding an unknown user succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			if !force && !cfg.NonInteractive {
				fmt.Printf("Remove %s from the directory? (y/N): ", userID)
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if strings.ToLower(strings.TrimSpace(answer)) != "y" {
					fmt.Println("Offboard cancelled")
					return nil
				}
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			if err := rt.manager.Offboard(context.Background(), userID); err != nil {
				return err
			}

			cfg.Logger.Info("✓ %s offboarded", userID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}
