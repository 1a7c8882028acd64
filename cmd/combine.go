package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/combine"
)

var resolutions []string

func init() {
	combineCmd.Flags().StringSliceVarP(&resolutions, "resolution", "r", []string{"HH", "HR"}, "Resolutions to combine")
	planCmd.Flags().StringSliceVarP(&resolutions, "resolution", "r", []string{"HH", "HR"}, "Resolutions to plan")
	rootCmd.AddCommand(combineCmd)
}

// jobsFor returns one job per site and resolution.
func jobsFor(sites []string) []combine.Job {
	var jobs []combine.Job
	for _, site := range sites {
		for _, res := range resolutions {
			jobs = append(jobs, combine.Job{Site: site, Resolution: strings.TrimSpace(res)})
		}
	}
	return jobs
}

var combineCmd = &cobra.Command{
	Use:   "combine <site> [site...]",
	Short: "Merge the uploads of each site into one file per resolution",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		sink, closeSink, err := openSink()
		if err != nil {
			return err
		}
		defer func() { err = errs.Combine(err, closeSink()) }()

		runner, err := newRunner(sink)
		if err != nil {
			return err
		}

		results, err := runner.RunAll(cmd.Context(), jobsFor(args))
		out := cmd.OutOrStdout()
		for _, res := range results {
			if res == nil {
				continue
			}
			switch res.Status {
			case combine.StatusMerged:
				_, _ = fmt.Fprintf(out, "%s\t%s\t%d rows, %d gaps, %d skipped\n",
					res.Job, res.Output, res.Stats.Rows, len(res.Gaps), len(res.Skipped))
			default:
				_, _ = fmt.Fprintf(out, "%s\t%s\n", res.Job, res.Status)
			}
		}
		return err
	},
}
