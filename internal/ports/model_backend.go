package ports

import (
	"context"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

type CompletionRequest struct {
	History []domain.Message
	Tools   []domain.ToolSpec
	Choice  ToolChoice
}

// Completion is a single model turn: either direct content, requested tool
// invocations, or (for a misbehaving backend) neither.
type Completion struct {
	Content   string
	ToolCalls []domain.ToolInvocationRequest
}

type ModelBackend interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	CompleteStructured(ctx context.Context, history []domain.Message) (domain.AnswerRecord, error)
}
