package ports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

// Tool is a registered tool implementation. Execute receives the raw JSON
// arguments after schema validation and returns JSON or plain text.
type Tool interface {
	Spec() domain.ToolSpec
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

type typedTool[A any] struct {
	spec     domain.ToolSpec
	defaults func() A
	run      func(ctx context.Context, args A) (string, error)
}

// NewTool adapts a typed handler. defaults may be nil; when set, its value is
// the starting point the arguments are decoded over.
func NewTool[A any](spec domain.ToolSpec, defaults func() A, run func(ctx context.Context, args A) (string, error)) Tool {
	return &typedTool[A]{spec: spec, defaults: defaults, run: run}
}

func (t *typedTool[A]) Spec() domain.ToolSpec {
	return t.spec
}

func (t *typedTool[A]) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var args A
	if t.defaults != nil {
		args = t.defaults()
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&args); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrInvalidArguments, t.spec.Name, err)
	}

	return t.run(ctx, args)
}
