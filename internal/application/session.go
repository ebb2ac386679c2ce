package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const DefaultMaxTurns = 10

type SessionDeps struct {
	Backend    ports.ModelBackend
	Dispatcher *Dispatcher
	Retrier    *Retrier
	Validator  *ResponseValidator
	Logger     *slog.Logger
}

// Session drives one question through the tool-use turn loop. It owns its
// history and is not safe for concurrent use.
type Session struct {
	deps     SessionDeps
	maxTurns int
	logger   *slog.Logger

	state   domain.SessionState
	history *domain.History
	seenIDs map[string]struct{}
	outcome domain.SessionOutcome
}

func NewSession(deps SessionDeps, maxTurns int, seed []domain.Message) *Session {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}
	if deps.Retrier == nil {
		deps.Retrier = NewRetrier(RetryPolicy{MaxAttempts: 1}, nil, deps.Logger)
	}
	if deps.Validator == nil {
		deps.Validator = NewResponseValidator(deps.Logger)
	}

	return &Session{
		deps:     deps,
		maxTurns: maxTurns,
		logger:   loggerOrDiscard(deps.Logger),
		state:    domain.SessionRunning,
		history:  domain.NewHistory(seed...),
		seenIDs:  make(map[string]struct{}),
	}
}

func (s *Session) State() domain.SessionState {
	return s.state
}

func (s *Session) History() []domain.Message {
	return s.history.Snapshot()
}

// Run executes the turn loop until the session completes or fails. The
// returned outcome is always terminal.
func (s *Session) Run(ctx context.Context) domain.SessionOutcome {
	if s.state.Terminal() {
		return s.outcome
	}

	var catalog []domain.ToolSpec
	if s.deps.Dispatcher != nil {
		catalog = s.deps.Dispatcher.Specs()
	}
	attempts := s.deps.Retrier.Policy().MaxAttempts

	for turn := 1; turn <= s.maxTurns; turn++ {
		s.outcome.Turns = turn
		s.state = domain.SessionAwaitingModelResponse

		completion, err := Retry(ctx, s.deps.Retrier, "model completion", func(ctx context.Context) (ports.Completion, error) {
			s.outcome.ModelCalls++
			return s.deps.Backend.Complete(ctx, ports.CompletionRequest{
				History: s.history.Snapshot(),
				Tools:   catalog,
				Choice:  ports.ToolChoiceAuto,
			})
		})
		if err != nil {
			return s.fail(domain.FailureRetriesExhausted,
				fmt.Sprintf("Error communicating with AI model after %d retries in turn %d: %v", attempts, turn, err))
		}

		if len(completion.ToolCalls) > 0 {
			s.executeTools(ctx, turn, completion)
			continue
		}

		if strings.TrimSpace(completion.Content) == "" {
			return s.fail(domain.FailureNoContent, "LLM provided no content")
		}
		return s.complete(completion.Content)
	}

	s.logger.Info("turn budget exhausted, requesting final answer without tools", slog.Int("max_turns", s.maxTurns))
	s.state = domain.SessionAwaitingModelResponse
	s.outcome.ModelCalls++
	completion, err := s.deps.Backend.Complete(ctx, ports.CompletionRequest{
		History: s.history.Snapshot(),
		Tools:   catalog,
		Choice:  ports.ToolChoiceNone,
	})
	if err != nil {
		return s.fail(domain.FailureTurnBudget, fmt.Sprintf("Max turns reached, error during final LLM call: %v", err))
	}
	if strings.TrimSpace(completion.Content) == "" {
		return s.fail(domain.FailureTurnBudget, "Max turns reached, LLM provided no content in final attempt")
	}
	return s.complete(completion.Content)
}

// executeTools dispatches the requested calls one at a time in request order.
func (s *Session) executeTools(ctx context.Context, turn int, completion ports.Completion) {
	s.state = domain.SessionExecutingTools

	calls := make([]domain.ToolInvocationRequest, len(completion.ToolCalls))
	for i, call := range completion.ToolCalls {
		call.ID = s.invocationID(call.ID)
		calls[i] = call
	}
	s.history.Append(domain.AssistantMessage{Content: completion.Content, ToolCalls: calls})

	for _, call := range calls {
		s.logger.Info("tool call", slog.Int("turn", turn), slog.String("tool", call.Name), slog.String("id", call.ID))
		var result domain.ToolResult
		if s.deps.Dispatcher != nil {
			result = s.deps.Dispatcher.Execute(ctx, call)
		} else {
			result = failedResult(domain.ToolResult{InvocationID: call.ID, Name: call.Name},
				domain.ToolOutcomeUnknownTool, fmt.Sprintf("Function '%s' not found", call.Name))
		}
		s.outcome.ToolCalls++
		s.history.Append(result.Message())
	}
}

// invocationID keeps backend ids unless they are missing or already used in
// this session.
func (s *Session) invocationID(id string) string {
	if _, seen := s.seenIDs[id]; id == "" || seen {
		id = "call_" + uuid.NewString()
	}
	s.seenIDs[id] = struct{}{}
	return id
}

func (s *Session) complete(content string) domain.SessionOutcome {
	s.history.Append(domain.AssistantMessage{Content: content})

	validated := s.deps.Validator.Validate(content)
	s.state = domain.SessionCompleted
	s.outcome.State = s.state
	s.outcome.Answer = validated.Answer
	s.outcome.Degraded = validated.Degraded
	s.outcome.Failure = domain.FailureNone
	return s.outcome
}

func (s *Session) fail(kind domain.FailureKind, cause string) domain.SessionOutcome {
	s.logger.Warn("session failed", slog.String("failure", string(kind)), slog.String("cause", cause))

	s.state = domain.SessionFailed
	s.outcome.State = s.state
	s.outcome.Answer = domain.NoAnswer(cause)
	s.outcome.Failure = kind
	return s.outcome
}
