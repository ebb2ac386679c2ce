package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	reportadapter "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/render/report"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/scoring"
)

const maxListedMisses = 20

func newReportCmd(app *app) *cobra.Command {
	var resultsPath string
	var showMisses bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Score a saved results file against its ground truth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := application.NewRunService(app.datasets, app.runs, nil, app.clock, app.logger)
			report, err := service.Report(cmd.Context(), resultsPath)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toReportOutput(report))
			}
			return writeReport(cmd, app, report, showMisses)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Results JSON file written by `genegpt run`")
	cmd.Flags().BoolVar(&showMisses, "misses", false, "List questions that were not answered exactly")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print metrics as JSON")
	_ = cmd.MarkFlagRequired("results")

	return cmd
}

func writeReport(cmd *cobra.Command, app *app, report scoring.Report, showMisses bool) error {
	rendered, err := app.reportRenderer(report, reportadapter.RenderOptions{
		ShowMisses: showMisses,
		MaxMisses:  maxListedMisses,
	})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

type summaryOutput struct {
	Category            string  `json:"category,omitempty"`
	Questions           int     `json:"questions"`
	Failures            int     `json:"failures"`
	Predicted           int     `json:"predicted"`
	Accuracy            float64 `json:"accuracy"`
	AverageLevenshtein  float64 `json:"average_levenshtein"`
	PartialMatchAverage float64 `json:"partial_match_average"`
}

type reportOutput struct {
	Overall    summaryOutput   `json:"overall"`
	Categories []summaryOutput `json:"categories"`
}

func toReportOutput(report scoring.Report) reportOutput {
	out := reportOutput{
		Overall:    toSummaryOutput(report.Overall),
		Categories: make([]summaryOutput, 0, len(report.Categories)),
	}
	for _, summary := range report.Categories {
		out.Categories = append(out.Categories, toSummaryOutput(summary))
	}
	return out
}

func toSummaryOutput(summary scoring.Summary) summaryOutput {
	return summaryOutput{
		Category:            string(summary.Category),
		Questions:           summary.Questions,
		Failures:            summary.Failures,
		Predicted:           summary.Predicted,
		Accuracy:            summary.Accuracy,
		AverageLevenshtein:  summary.AverageLevenshtein,
		PartialMatchAverage: summary.PartialMatchAverage,
	}
}
