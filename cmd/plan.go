package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/combine"
)

func init() {
	rootCmd.AddCommand(planCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan <site> [site...]",
	Short: "Show the timeline a combine would produce without writing anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner(nil)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer func() { _ = tw.Flush() }()

		for _, job := range jobsFor(args) {
			res, err := runner.Plan(cmd.Context(), job)
			if err != nil {
				return fmt.Errorf("%s: %w", job, err)
			}
			if res.Status == combine.StatusNoCandidates {
				_, _ = fmt.Fprintf(tw, "%s\tno uploads\n", job)
				continue
			}
			_, _ = fmt.Fprintf(tw, "%s\t-> %s\n", job, res.Output)
			for _, e := range res.Timeline {
				src := "(gap)"
				if !e.IsGap() {
					src = fmt.Sprintf("%s\tkey %s", e.Source.Name, e.UploadKey())
				}
				_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", e.Start, e.End, src)
			}
			for _, c := range res.Skipped {
				_, _ = fmt.Fprintf(tw, "  skip\t%s\tkey %s\n", c.Name, c.UploadKey)
			}
			if res.Trim != nil {
				_, _ = fmt.Fprintf(tw, "  trim\t%s\t%s -> %s\n", res.Trim.Source, res.Trim.From, res.Trim.To)
			}
		}
		return nil
	},
}
