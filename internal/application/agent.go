package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type AgentConfig struct {
	MaxTurns       int
	ToolUse        bool
	SystemPrompt   string
	ExemplarPrompt string
}

// Agent answers single questions, either through a tool-use Session or with
// one structured completion when tool use is disabled.
type Agent struct {
	deps   SessionDeps
	config AgentConfig
	logger *slog.Logger
}

func NewAgent(deps SessionDeps, config AgentConfig) *Agent {
	if config.MaxTurns < 1 {
		config.MaxTurns = DefaultMaxTurns
	}
	if deps.Retrier == nil {
		deps.Retrier = NewRetrier(RetryPolicy{MaxAttempts: 1}, nil, deps.Logger)
	}
	if deps.Validator == nil {
		deps.Validator = NewResponseValidator(deps.Logger)
	}

	return &Agent{deps: deps, config: config, logger: loggerOrDiscard(deps.Logger)}
}

func (a *Agent) ToolUse() bool {
	return a.config.ToolUse
}

// Seed builds the initial history: system prompt, exemplar, question.
func (a *Agent) Seed(q domain.Question) []domain.Message {
	return []domain.Message{
		domain.SystemMessage{Content: a.config.SystemPrompt},
		domain.UserMessage{Content: a.config.ExemplarPrompt},
		domain.UserMessage{Content: q.Key.Text},
	}
}

func (a *Agent) NewSession(q domain.Question) *Session {
	deps := a.deps
	deps.Logger = a.logger.With(slog.String("category", string(q.Key.Category)), slog.String("question", q.Key.Text))
	return NewSession(deps, a.config.MaxTurns, a.Seed(q))
}

func (a *Agent) Answer(ctx context.Context, q domain.Question) domain.SessionOutcome {
	if a.config.ToolUse {
		return a.NewSession(q).Run(ctx)
	}
	return a.answerDirect(ctx, q)
}

func (a *Agent) answerDirect(ctx context.Context, q domain.Question) domain.SessionOutcome {
	history := a.Seed(q)
	outcome := domain.SessionOutcome{Turns: 1}

	record, err := Retry(ctx, a.deps.Retrier, "structured completion", func(ctx context.Context) (domain.AnswerRecord, error) {
		outcome.ModelCalls++
		return a.deps.Backend.CompleteStructured(ctx, history)
	})
	if err != nil {
		a.logger.Warn("structured completion failed", slog.String("question", q.Key.Text), slog.Any("error", err))
		outcome.State = domain.SessionFailed
		outcome.Failure = domain.FailureRetriesExhausted
		outcome.Answer = domain.NoAnswer(fmt.Sprintf("LLM call failed after %d retries: %v", a.deps.Retrier.Policy().MaxAttempts, err))
		return outcome
	}

	outcome.State = domain.SessionCompleted
	outcome.Answer = record
	if !record.Answered {
		outcome.Answer = domain.NewAnswer(record.Thoughts, record.Answer)
	}
	return outcome
}
