package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

func newRunsCmd(app *app) *cobra.Command {
	var runID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded dataset runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := application.NewRunService(app.datasets, app.runs, nil, app.clock, app.logger)

			var runs []domain.RunRecord
			if runID != "" {
				run, err := service.GetRun(cmd.Context(), domain.RunID(runID))
				if err != nil {
					return err
				}
				runs = []domain.RunRecord{run}
			} else {
				listed, err := service.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				runs = listed
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			rendered, err := app.runsRenderer(runs)
			if err != nil {
				return fmt.Errorf("render runs: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&runID, "id", "", "Show a single run by id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")

	return cmd
}
