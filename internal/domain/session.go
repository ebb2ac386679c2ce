package domain

type SessionState string

const (
	SessionRunning               SessionState = "running"
	SessionAwaitingModelResponse SessionState = "awaiting_model_response"
	SessionExecutingTools        SessionState = "executing_tools"
	SessionCompleted             SessionState = "completed"
	SessionFailed                SessionState = "failed"
)

func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureRetriesExhausted FailureKind = "retries_exhausted"
	FailureNoContent        FailureKind = "no_content"
	FailureTurnBudget       FailureKind = "turn_budget_exceeded"
	FailureScheduling       FailureKind = "scheduling_error"
)

type SessionOutcome struct {
	State   SessionState
	Answer  AnswerRecord
	Failure FailureKind
	// Degraded is set when the final content could not be parsed and the raw
	// text was used instead.
	Degraded   bool
	Turns      int
	ModelCalls int
	ToolCalls  int
}

func (o SessionOutcome) Failed() bool {
	return o.State == SessionFailed
}
