package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credsync/credsync/internal/config"
)

func NewVaultCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Inspect and manage mirrored credentials",
		Long: `Work with the credentials mirrored into the configured vault backend.
Every vault access is recorded in the audit trail.`,
	}

	cmd.AddCommand(newVaultGetCommand(cfg))
	cmd.AddCommand(newVaultListCommand(cfg))
	cmd.AddCommand(newVaultDeleteCommand(cfg))

	return cmd
}

func newVaultGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id> <store-name>",
		Short: "Print a mirrored credential hash",
		Long: `Print the hashed credential mirrored for a user and store to stdout.
The access is audited.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, storeName := args[0], args[1]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			value, found, err := rt.mirror.Retrieve(context.Background(), userID, storeName)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no mirrored credential for %s in %s", userID, storeName)
			}

			fmt.Println(value.Reveal())
			return nil
		},
	}
}

func newVaultListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's mirrored vault keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			keys, err := rt.mirror.Keys(context.Background(), args[0])
			if err != nil {
				return err
			}

			if len(keys) == 0 {
				fmt.Println("No mirrored credentials")
				return nil
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
}

func newVaultDeleteCommand(cfg *config.Config) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete <user-id> [store-name]",
		Short: "Delete mirrored credentials",
		Long: `Delete the mirrored credential for one store, or every mirrored
credential for the user with --all. Deleting what is not there succeeds.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.registry.Close()

			ctx := context.Background()
			switch {
			case all:
				if err := rt.mirror.DeleteAll(ctx, userID); err != nil {
					return err
				}
				cfg.Logger.Info("✓ cleared vault mirror for %s", userID)
			case len(args) == 2:
				if err := rt.mirror.Delete(ctx, userID, args[1]); err != nil {
					return err
				}
				cfg.Logger.Info("✓ deleted mirrored credential for %s in %s", userID, args[1])
			default:
				return fmt.Errorf("pass a store name or --all")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every mirrored credential for the user")

	return cmd
}
