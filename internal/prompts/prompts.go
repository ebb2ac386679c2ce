// Package prompts holds the system and few-shot prompts sent with every
// question.
package prompts

import (
	_ "embed"
	"strings"
)

var (
	//go:embed system.md
	system string
	//go:embed tool_use.md
	toolUse string
	//go:embed examples.md
	examples string
)

// System returns the system prompt for direct or tool-use sessions.
func System(withTools bool) string {
	if withTools {
		return strings.TrimSpace(toolUse)
	}
	return strings.TrimSpace(system)
}

func Examples() string {
	return strings.TrimSpace(examples)
}
