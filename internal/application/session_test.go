package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports/mocks"
)

func seedMessages() []domain.Message {
	return []domain.Message{
		domain.SystemMessage{Content: "system"},
		domain.UserMessage{Content: "exemplar"},
		domain.UserMessage{Content: "What is the official gene symbol of SNAT6?"},
	}
}

func newSessionDeps(t *testing.T, backend ports.ModelBackend, clock ports.Clock, maxAttempts int, tools ...ports.Tool) SessionDeps {
	t.Helper()

	limiter, err := NewRateLimiter(2, 0, clock)
	require.NoError(t, err)
	dispatcher := NewDispatcher(limiter)
	require.NoError(t, dispatcher.Register(tools...))

	return SessionDeps{
		Backend:    backend,
		Dispatcher: dispatcher,
		Retrier:    NewRetrier(RetryPolicy{MaxAttempts: maxAttempts, Delay: 5 * time.Second}, clock, nil),
		Validator:  NewResponseValidator(nil),
	}
}

func TestSessionToolCallThenAnswer(t *testing.T) {
	t.Parallel()

	backend := mocks.NewMockModelBackend(t)
	var executed []string
	tool := searchTool(domain.GateCall, func(_ context.Context, args termArgs) (string, error) {
		executed = append(executed, args.Term)
		return `{"uids":["164091"]}`, nil
	})
	deps := newSessionDeps(t, backend, newFakeClock(), 3, tool)

	backend.EXPECT().Complete(mock.Anything, withChoice(ports.ToolChoiceAuto)).Return(ports.Completion{
		ToolCalls: []domain.ToolInvocationRequest{
			toolCall("call_1", domain.ToolESearch, map[string]any{"database": "gene", "term": "SNAT6"}),
		},
	}, nil).Once()
	backend.EXPECT().Complete(mock.Anything, mock.MatchedBy(func(req ports.CompletionRequest) bool {
		last, ok := req.History[len(req.History)-1].(domain.ToolMessage)
		return ok && last.InvocationID == "call_1" && len(req.Tools) == 1
	})).Return(ports.Completion{Content: `{"thoughts":"found it","answer":"SLC38A6"}`}, nil).Once()

	session := NewSession(deps, 10, seedMessages())
	outcome := session.Run(context.Background())

	require.Equal(t, domain.SessionCompleted, outcome.State)
	assert.Equal(t, domain.SessionCompleted, session.State())
	assert.Equal(t, 2, outcome.ModelCalls)
	assert.Equal(t, 1, outcome.ToolCalls)
	assert.Equal(t, 2, outcome.Turns)
	assert.Equal(t, "SLC38A6", outcome.Answer.Answer)
	assert.Equal(t, []string{"SNAT6"}, executed)

	history := session.History()
	require.Len(t, history, 6)
	assistant, ok := history[3].(domain.AssistantMessage)
	require.True(t, ok)
	require.Len(t, assistant.ToolCalls, 1)
	toolMessage, ok := history[4].(domain.ToolMessage)
	require.True(t, ok)
	assert.Equal(t, "call_1", toolMessage.InvocationID)
	assert.Equal(t, "esearch_ncbi", toolMessage.Name)
	assert.JSONEq(t, `{"uids":["164091"]}`, toolMessage.Content)
}

func TestSessionDispatchesToolCallsInRequestOrder(t *testing.T) {
	t.Parallel()

	backend := mocks.NewMockModelBackend(t)
	var order []string
	deps := newSessionDeps(t, backend, newFakeClock(), 1,
		searchTool(domain.GateCall, func(_ context.Context, args termArgs) (string, error) {
			order = append(order, "search:"+args.Term)
			return "{}", nil
		}),
		summaryTool(func(_ context.Context, args idsArgs) (string, error) {
			order = append(order, "summary")
			return "{}", nil
		}),
	)

	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{
		ToolCalls: []domain.ToolInvocationRequest{
			toolCall("", domain.ToolESearch, map[string]any{"database": "gene", "term": "A"}),
			toolCall("dup", domain.ToolESummary, map[string]any{"database": "gene", "ids": []string{"1"}}),
			toolCall("dup", domain.ToolESearch, map[string]any{"database": "gene", "term": "B"}),
		},
	}, nil).Once()
	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{Content: "plain answer"}, nil).Once()

	session := NewSession(deps, 5, seedMessages())
	outcome := session.Run(context.Background())

	require.Equal(t, domain.SessionCompleted, outcome.State)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, "plain answer", outcome.Answer.Answer)
	assert.Equal(t, []string{"search:A", "summary", "search:B"}, order)

	history := session.History()
	assistant := history[3].(domain.AssistantMessage)
	ids := map[string]struct{}{}
	for i, call := range assistant.ToolCalls {
		require.NotEmpty(t, call.ID)
		ids[call.ID] = struct{}{}
		toolMessage := history[4+i].(domain.ToolMessage)
		assert.Equal(t, call.ID, toolMessage.InvocationID)
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, "dup", assistant.ToolCalls[1].ID)
}

func TestSessionTurnBudgetForcesFinalAnswer(t *testing.T) {
	t.Parallel()

	const maxTurns = 3
	alwaysTools := ports.Completion{ToolCalls: []domain.ToolInvocationRequest{
		toolCall("", domain.ToolESearch, map[string]any{"database": "gene", "term": "loop"}),
	}}

	tests := []struct {
		name         string
		final        ports.Completion
		finalErr     error
		wantState    domain.SessionState
		wantFailure  domain.FailureKind
		wantThoughts string
	}{
		{
			name:        "final call answers",
			final:       ports.Completion{Content: `{"thoughts":"best guess","answer":"SLC38A6"}`},
			wantState:   domain.SessionCompleted,
			wantFailure: domain.FailureNone,
		},
		{
			name:         "final call empty",
			final:        ports.Completion{},
			wantState:    domain.SessionFailed,
			wantFailure:  domain.FailureTurnBudget,
			wantThoughts: "Max turns reached, LLM provided no content in final attempt",
		},
		{
			name:         "final call errors",
			finalErr:     errBackend,
			wantState:    domain.SessionFailed,
			wantFailure:  domain.FailureTurnBudget,
			wantThoughts: "Max turns reached, error during final LLM call: backend unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := mocks.NewMockModelBackend(t)
			toolRuns := 0
			deps := newSessionDeps(t, backend, newFakeClock(), 3,
				searchTool(domain.GateCall, func(context.Context, termArgs) (string, error) {
					toolRuns++
					return `{"uids":[]}`, nil
				}))

			backend.EXPECT().Complete(mock.Anything, withChoice(ports.ToolChoiceAuto)).Return(alwaysTools, nil).Times(maxTurns)
			backend.EXPECT().Complete(mock.Anything, withChoice(ports.ToolChoiceNone)).Return(tt.final, tt.finalErr).Once()

			outcome := NewSession(deps, maxTurns, seedMessages()).Run(context.Background())

			assert.Equal(t, tt.wantState, outcome.State)
			assert.Equal(t, tt.wantFailure, outcome.Failure)
			assert.Equal(t, maxTurns, outcome.Turns)
			assert.Equal(t, maxTurns+1, outcome.ModelCalls)
			assert.Equal(t, maxTurns, toolRuns)
			if tt.wantState == domain.SessionFailed {
				assert.Nil(t, outcome.Answer.Prediction())
				assert.Equal(t, tt.wantThoughts, outcome.Answer.Thoughts)
			} else {
				assert.Equal(t, "SLC38A6", *outcome.Answer.Prediction())
			}
		})
	}
}

func TestSessionRetriesExhausted(t *testing.T) {
	t.Parallel()

	backend := mocks.NewMockModelBackend(t)
	clock := newFakeClock()
	deps := newSessionDeps(t, backend, clock, 3)

	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{}, errBackend).Times(3)

	outcome := NewSession(deps, 10, seedMessages()).Run(context.Background())

	assert.Equal(t, domain.SessionFailed, outcome.State)
	assert.Equal(t, domain.FailureRetriesExhausted, outcome.Failure)
	assert.Equal(t, 3, outcome.ModelCalls)
	assert.Nil(t, outcome.Answer.Prediction())
	assert.Contains(t, outcome.Answer.Thoughts, "after 3 retries in turn 1")
	assert.Contains(t, outcome.Answer.Thoughts, "backend unavailable")
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.Sleeps())
}

func TestSessionRecoversFromTransientBackendError(t *testing.T) {
	t.Parallel()

	backend := mocks.NewMockModelBackend(t)
	deps := newSessionDeps(t, backend, newFakeClock(), 3)

	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{}, errBackend).Once()
	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{Content: `{"thoughts":"t","answer":"a"}`}, nil).Once()

	outcome := NewSession(deps, 10, seedMessages()).Run(context.Background())

	assert.Equal(t, domain.SessionCompleted, outcome.State)
	assert.Equal(t, 2, outcome.ModelCalls)
	assert.Equal(t, 1, outcome.Turns)
}

func TestSessionNoContent(t *testing.T) {
	t.Parallel()

	backend := mocks.NewMockModelBackend(t)
	deps := newSessionDeps(t, backend, newFakeClock(), 3)

	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{Content: "   "}, nil).Once()

	session := NewSession(deps, 10, seedMessages())
	outcome := session.Run(context.Background())

	assert.Equal(t, domain.SessionFailed, outcome.State)
	assert.Equal(t, domain.FailureNoContent, outcome.Failure)
	assert.Equal(t, "LLM provided no content", outcome.Answer.Thoughts)
	assert.Equal(t, 1, outcome.ModelCalls)

	again := session.Run(context.Background())
	assert.Equal(t, outcome, again)
}

func TestSessionUnknownToolIsFedBackToModel(t *testing.T) {
	t.Parallel()

	backend := mocks.NewMockModelBackend(t)
	deps := newSessionDeps(t, backend, newFakeClock(), 1)

	backend.EXPECT().Complete(mock.Anything, mock.Anything).Return(ports.Completion{
		ToolCalls: []domain.ToolInvocationRequest{{ID: "x", Name: "blast_everything", Arguments: "{}"}},
	}, nil).Once()
	backend.EXPECT().Complete(mock.Anything, mock.MatchedBy(func(req ports.CompletionRequest) bool {
		last, ok := req.History[len(req.History)-1].(domain.ToolMessage)
		return ok && last.Content == `{"error":"Function 'blast_everything' not found"}`
	})).Return(ports.Completion{Content: `{"thoughts":"t","answer":"a"}`}, nil).Once()

	outcome := NewSession(deps, 10, seedMessages()).Run(context.Background())
	assert.Equal(t, domain.SessionCompleted, outcome.State)
}
