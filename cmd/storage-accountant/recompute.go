package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bignyap/studio-storage/config"
	"github.com/spf13/cobra"
)

func newRecomputeCommand(cfg *config.Config) *cobra.Command {
	var (
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "recompute [tenant-slug]",
		Short: "Recompute storage usage for one tenant, or every tenant with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, true)
			if err != nil {
				return err
			}
			defer closeApp(a)

			out := cmd.OutOrStdout()
			if all {
				res, err := a.acct.RecomputeAll(ctx)
				fmt.Fprintf(out, "tenants: %d  succeeded: %d  failed: %d\n", res.Tenants, res.Succeeded, res.Failed)
				if err != nil {
					return err
				}
				if res.Failed > 0 {
					return errors.New("some tenants failed; see logs")
				}
				return nil
			}

			rctx, cancel := a.acct.WithTimeout(ctx)
			defer cancel()
			r, err := a.acct.Recompute(rctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, r)
			}
			writeUsage(out, r.Slug, r.TotalBytes, r.QuotaLimitBytes, r.PerKindBytes, r.Sections, r.LastCalculatedAt)
			if r.Degraded > 0 {
				fmt.Fprintf(out, "\nwarning: %d blobs or links could not be read; totals may be low\n", r.Degraded)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "recompute every tenant in the directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Close(ctx)
}
