package main

import (
	"fmt"

	"github.com/bignyap/studio-storage/config"
	"github.com/spf13/cobra"
)

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog and snapshot tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, false)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", a.conn.Driver)
			return nil
		},
	}
}
