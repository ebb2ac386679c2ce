package domain

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ToolName is the closed set of tools a session may invoke.
type ToolName string

const (
	ToolESearch   ToolName = "esearch_ncbi"
	ToolESummary  ToolName = "esummary_ncbi"
	ToolEFetch    ToolName = "efetch_ncbi"
	ToolBlastPut  ToolName = "blast_put"
	ToolBlastGet  ToolName = "blast_get"
	ToolWebSearch ToolName = "web_search"
)

var knownTools = []ToolName{ToolESearch, ToolESummary, ToolEFetch, ToolBlastPut, ToolBlastGet, ToolWebSearch}

func KnownTools() []ToolName {
	out := make([]ToolName, len(knownTools))
	copy(out, knownTools)
	return out
}

func ParseToolName(raw string) (ToolName, bool) {
	for _, name := range knownTools {
		if string(name) == raw {
			return name, true
		}
	}
	return "", false
}

// Gate describes how a tool's external calls are admitted by the shared
// rate limiter.
type Gate string

const (
	// GateNone calls never touch the shared external service.
	GateNone Gate = "none"
	// GateCall holds one permit for the whole tool call.
	GateCall Gate = "call"
	// GateSelf tools receive the limiter at construction and gate their own
	// requests, so their waits do not hold a permit.
	GateSelf Gate = "self"
)

type ToolSpec struct {
	Name        ToolName
	Description string
	Parameters  jsonschema.Definition
	Gate        Gate
	// Cacheable results depend only on the arguments.
	Cacheable bool
}

type ToolInvocationRequest struct {
	ID        string
	Name      string
	Arguments string
}

type ToolOutcome string

const (
	ToolOutcomeOK               ToolOutcome = "ok"
	ToolOutcomeInvalidArguments ToolOutcome = "invalid_arguments"
	ToolOutcomeUnknownTool      ToolOutcome = "unknown_tool"
	ToolOutcomeExecutionError   ToolOutcome = "execution_error"
)

type ToolResult struct {
	InvocationID string
	Name         string
	Outcome      ToolOutcome
	Content      string
	Cached       bool
}

func (r ToolResult) Message() ToolMessage {
	return ToolMessage{InvocationID: r.InvocationID, Name: r.Name, Content: r.Content}
}
