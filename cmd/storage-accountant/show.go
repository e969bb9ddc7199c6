package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newShowCommand(cfg *config.Config) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <tenant-slug>",
		Short: "Print the stored usage snapshot without recomputing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfg, false)
			if err != nil {
				return err
			}
			defer closeApp(a)

			tenantID, err := a.tenants.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			snap, err := a.store.Get(ctx, tenantID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, snap)
			}
			writeUsage(out, args[0], snap.TotalBytes, snap.QuotaLimitBytes, snap.PerKindBytes, snap.Sections, snap.LastCalculatedAt)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ibytes(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}

func writeUsage(w io.Writer, slug string, total, quota int64, perKind map[accounting.Kind]int64, sections []accounting.SectionBreakdown, at time.Time) {
	fmt.Fprintf(w, "tenant:     %s\n", slug)
	fmt.Fprintf(w, "used:       %s of %s", ibytes(total), ibytes(quota))
	if quota > 0 {
		fmt.Fprintf(w, " (%.1f%%)", float64(total)*100/float64(quota))
	}
	fmt.Fprintf(w, "\ncalculated: %s (%s)\n\n", at.Format(time.RFC3339), humanize.Time(at))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tBYTES\tSIZE")
	for _, k := range accounting.Kinds {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", k, perKind[k], ibytes(perKind[k]))
	}
	_ = tw.Flush()

	if len(sections) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tCATEGORIES\tITEMS\tSUBTOTAL")
	for _, s := range sections {
		fmt.Fprintf(tw, "%s\t%d (%s)\t%d (%s)\t%s\n",
			s.SectionName, s.CategoryCount, ibytes(s.CategoryBytes), s.ItemCount, ibytes(s.ItemBytes), ibytes(s.Subtotal))
	}
	_ = tw.Flush()
}
