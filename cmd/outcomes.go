package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/config"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/report"
)

var outcomeFilter report.Filter

func init() {
	outcomesCmd.Flags().StringVar(&outcomeFilter.Site, "site", "", "Only outcomes of this site")
	outcomesCmd.Flags().StringVar(&outcomeFilter.Resolution, "resolution", "", "Only outcomes of this resolution")
	outcomesCmd.Flags().StringVar(&outcomeFilter.RunID, "run", "", "Only outcomes of this run")
	outcomesCmd.Flags().StringVar((*string)(&outcomeFilter.Kind), "kind", "", "Only outcomes of this kind")
	rootCmd.AddCommand(outcomesCmd)
}

type outcomeLine struct {
	RunID      string          `json:"run_id"`
	Site       string          `json:"site"`
	Resolution string          `json:"resolution"`
	Kind       string          `json:"kind"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Print stored run outcomes as JSON lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DBPath == "" {
			return config.Error.New("db_path is empty, outcomes are not stored")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		return report.Stream(cfg.DBPath, outcomeFilter, func(o report.Outcome) error {
			line := outcomeLine{
				RunID:      o.RunID,
				Site:       o.Site,
				Resolution: o.Resolution,
				Kind:       string(o.Kind),
				Message:    o.Message,
				CreatedAt:  o.CreatedAt.UTC(),
			}
			if raw, ok := o.Payload.(json.RawMessage); ok {
				line.Payload = raw
			}
			return enc.Encode(line)
		})
	},
}
