package main

import (
	"github.com/bignyap/studio-storage/config"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "storage-accountant",
		Short:         "Compute and persist per-tenant storage usage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(&cfg),
		newRecomputeCommand(&cfg),
		newShowCommand(&cfg),
		newMigrateCommand(&cfg),
		newPublishCommand(&cfg),
	)
	return root
}
