package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/scoring"
)

// RunService runs a dataset end to end: load, answer, save, score, and
// record the run in the ledger.
type RunService struct {
	datasets  ports.DatasetStore
	runs      ports.RunRepository
	scheduler *Scheduler
	clock     ports.Clock
	logger    *slog.Logger
}

func NewRunService(datasets ports.DatasetStore, runs ports.RunRepository, scheduler *Scheduler, clock ports.Clock, logger *slog.Logger) *RunService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if scheduler == nil {
		scheduler = NewScheduler(DefaultWorkers, WithSchedulerLogger(logger))
	}

	return &RunService{
		datasets:  datasets,
		runs:      runs,
		scheduler: scheduler,
		clock:     clock,
		logger:    loggerOrDiscard(logger),
	}
}

func (s *RunService) Run(ctx context.Context, cmd RunCommand, answerer QuestionAnswerer) (RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return RunSummary{}, err
	}
	if err := cmd.Validate(); err != nil {
		return RunSummary{}, fmt.Errorf("validate run command: %w", err)
	}

	dataset, err := s.datasets.LoadDataset(ctx, cmd.DatasetPath)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load dataset: %w", err)
	}
	if err := dataset.Validate(); err != nil {
		return RunSummary{}, fmt.Errorf("validate dataset: %w", err)
	}

	run := domain.RunRecord{
		ID:        domain.RunID(uuid.NewString()),
		StartedAt: s.clock.Now().UTC(),
		Dataset:   cmd.DatasetPath,
		Output:    cmd.OutputPath,
		Provider:  cmd.Provider,
		Model:     cmd.Model,
		ToolUse:   cmd.ToolUse,
		Params:    cmd.Params,
	}
	s.logger.Info("run started",
		slog.String("run_id", string(run.ID)),
		slog.Int("questions", dataset.Len()),
		slog.Bool("tool_use", cmd.ToolUse),
		slog.Int("workers", s.scheduler.Workers()),
	)

	results := s.scheduler.Run(ctx, dataset.Questions(), answerer)

	if err := s.datasets.SaveResults(ctx, cmd.OutputPath, results); err != nil {
		return RunSummary{}, fmt.Errorf("save results: %w", err)
	}

	report := scoring.Evaluate(results)
	run.FinishedAt = s.clock.Now().UTC()
	run.Questions = results.Len()
	run.Failures = results.Failures()
	run.Metrics = report.Overall.Metrics()

	summary := RunSummary{Run: run, Results: results, Report: report}
	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return summary, fmt.Errorf("save run record: %w", err)
		}
	}

	s.logger.Info("run finished",
		slog.String("run_id", string(run.ID)),
		slog.Int("failures", run.Failures),
		slog.Float64("accuracy", run.Metrics.Accuracy),
		slog.Duration("duration", run.Duration()),
	)
	return summary, nil
}

// Report scores a previously saved results file.
func (s *RunService) Report(ctx context.Context, resultsPath string) (scoring.Report, error) {
	results, err := s.datasets.LoadResults(ctx, resultsPath)
	if err != nil {
		return scoring.Report{}, fmt.Errorf("load results: %w", err)
	}
	return scoring.Evaluate(results), nil
}

// ListRuns returns the ledger newest first.
func (s *RunService) ListRuns(ctx context.Context) ([]domain.RunRecord, error) {
	if s.runs == nil {
		return nil, errors.New("run ledger is not configured")
	}
	runs, err := s.runs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func (s *RunService) GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	if s.runs == nil {
		return domain.RunRecord{}, errors.New("run ledger is not configured")
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run by id: %w", err)
	}
	return run, nil
}
