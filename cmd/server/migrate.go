package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema for the configured driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openBackend(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer store.close()

			fmt.Fprintf(cmd.OutOrStdout(), "Applying schema (%s)...\n", cfg.Store.Driver)
			if err := store.migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration successful.")
			return nil
		},
	}
}
