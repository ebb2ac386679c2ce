package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type runFlags struct {
	datasetPath string
	outputPath  string
	provider    string
	model       string
	toolUse     bool
	workers     int
	maxTurns    int
	maxRetries  int
	retryDelay  time.Duration
	showMisses  bool
	asJSON      bool
}

func newRunCmd(app *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer every question in a dataset, save the results, and score them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDataset(cmd, app, flags)
		},
	}

	cmd.Flags().StringVar(&flags.datasetPath, "dataset", "", "Dataset JSON file (category -> question -> answer)")
	cmd.Flags().StringVar(&flags.outputPath, "output", "", "Results JSON file to write")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Model provider: azure, ollama, or openai")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model or deployment name")
	cmd.Flags().BoolVar(&flags.toolUse, "tool-use", false, "Let the model call NCBI, BLAST, and web search tools")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Questions answered concurrently")
	cmd.Flags().IntVar(&flags.maxTurns, "max-turns", 0, "Model turns allowed per question")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 0, "Attempts per model call")
	cmd.Flags().DurationVar(&flags.retryDelay, "retry-delay", 0, "Fixed delay between model call attempts")
	cmd.Flags().BoolVar(&flags.showMisses, "misses", false, "List questions that were not answered exactly")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the run record and metrics as JSON")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runDataset(cmd *cobra.Command, app *app, flags runFlags) error {
	opts := app.engineOptions()
	changed := cmd.Flags().Changed
	if changed("provider") {
		opts.Provider = flags.provider
	}
	if changed("model") {
		opts.Model = flags.model
	}
	if changed("tool-use") {
		opts.ToolUse = flags.toolUse
	}
	if changed("max-turns") {
		opts.MaxTurns = flags.maxTurns
	}
	if changed("max-retries") {
		opts.MaxRetries = flags.maxRetries
	}
	if changed("retry-delay") {
		opts.RetryDelay = flags.retryDelay
	}
	workers := app.cfg.Scheduler.Workers
	if changed("workers") {
		workers = flags.workers
	}

	command := application.RunCommand{
		DatasetPath: flags.datasetPath,
		OutputPath:  flags.outputPath,
		Provider:    opts.Provider,
		Model:       opts.Model,
		ToolUse:     opts.ToolUse,
		Params: domain.RunParams{
			MaxTurns:     opts.MaxTurns,
			MaxRetries:   opts.MaxRetries,
			RetryDelay:   opts.RetryDelay,
			Workers:      workers,
			RateCapacity: app.cfg.RateLimit.Capacity,
		},
	}
	if err := command.Validate(); err != nil {
		return err
	}

	eng, err := app.newEngine(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	var summary application.RunSummary
	execute := func(ctx context.Context, onProgress func(application.Progress)) error {
		schedulerOpts := []application.SchedulerOption{application.WithSchedulerLogger(app.logger)}
		if onProgress != nil {
			schedulerOpts = append(schedulerOpts, application.WithProgress(onProgress))
		}
		service := application.NewRunService(app.datasets, app.runs, application.NewScheduler(workers, schedulerOpts...), app.clock, app.logger)

		var err error
		summary, err = service.Run(ctx, command, eng.agent)
		return err
	}

	if flags.asJSON {
		if err := execute(cmd.Context(), nil); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runOutput{Run: summary.Run, Report: toReportOutput(summary.Report)})
	}

	if err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), execute); err != nil {
		return err
	}
	if err := writeReport(cmd, app, summary.Report, flags.showMisses); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s: results saved to %s\n", summary.Run.ID, command.OutputPath)
	return err
}

type runOutput struct {
	Run    domain.RunRecord `json:"run"`
	Report reportOutput     `json:"report"`
}
