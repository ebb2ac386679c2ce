package application

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

const DefaultWorkers = 4

type QuestionAnswerer interface {
	Answer(ctx context.Context, q domain.Question) domain.SessionOutcome
}

type AnswerFunc func(ctx context.Context, q domain.Question) domain.SessionOutcome

func (f AnswerFunc) Answer(ctx context.Context, q domain.Question) domain.SessionOutcome {
	return f(ctx, q)
}

type Progress struct {
	Key     domain.QuestionKey
	Outcome domain.SessionOutcome
	Done    int
	Total   int
}

type SchedulerOption func(*Scheduler)

// WithProgress registers a callback invoked once per finished question. It
// is called from worker goroutines, serialized by the scheduler.
func WithProgress(fn func(Progress)) SchedulerOption {
	return func(s *Scheduler) {
		s.onResult = fn
	}
}

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = loggerOrDiscard(logger)
	}
}

// Scheduler runs one answerer call per question on a bounded worker pool.
type Scheduler struct {
	workers  int
	logger   *slog.Logger
	onResult func(Progress)
}

func NewScheduler(workers int, opts ...SchedulerOption) *Scheduler {
	if workers < 1 {
		workers = DefaultWorkers
	}
	s := &Scheduler{workers: workers, logger: loggerOrDiscard(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Workers() int {
	return s.workers
}

// Run returns exactly one entry per distinct question key. A panicking
// answerer is recorded as a scheduling failure for its question only.
func (s *Scheduler) Run(ctx context.Context, questions []domain.Question, answerer QuestionAnswerer) domain.Results {
	results := make(domain.Results)
	var mu sync.Mutex
	done := 0

	var group errgroup.Group
	group.SetLimit(s.workers)

	for _, question := range questions {
		group.Go(func() error {
			outcome := s.answer(ctx, question, answerer)

			mu.Lock()
			defer mu.Unlock()
			results.Put(question.Key, domain.NewResultEntry(question, outcome))
			done++
			if s.onResult != nil {
				s.onResult(Progress{Key: question.Key, Outcome: outcome, Done: done, Total: len(questions)})
			}
			return nil
		})
	}
	_ = group.Wait()

	s.logger.Info("batch finished", slog.Int("questions", results.Len()), slog.Int("failures", results.Failures()))
	return results
}

// AnswerOne answers a single question with the same panic recovery Run
// applies to each worker.
func (s *Scheduler) AnswerOne(ctx context.Context, q domain.Question, answerer QuestionAnswerer) domain.SessionOutcome {
	return s.answer(ctx, q, answerer)
}

func (s *Scheduler) answer(ctx context.Context, q domain.Question, answerer QuestionAnswerer) (outcome domain.SessionOutcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("session panicked",
				slog.String("question", q.Key.String()),
				slog.Any("panic", recovered),
				slog.String("stack", string(debug.Stack())),
			)
			outcome = domain.SessionOutcome{
				State:   domain.SessionFailed,
				Answer:  domain.NoAnswer(fmt.Sprintf("Scheduling error: %v", recovered)),
				Failure: domain.FailureScheduling,
			}
		}
	}()

	return answerer.Answer(ctx, q)
}
