package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

func TestToolUsePromptMentionsEveryTool(t *testing.T) {
	t.Parallel()

	prompt := System(true)
	for _, name := range domain.KnownTools() {
		assert.Contains(t, prompt, string(name))
	}
}

func TestPromptsAreTrimmedAndDistinct(t *testing.T) {
	t.Parallel()

	for _, prompt := range []string{System(false), System(true), Examples()} {
		assert.NotEmpty(t, prompt)
		assert.Equal(t, strings.TrimSpace(prompt), prompt)
	}
	assert.NotEqual(t, System(false), System(true))
	assert.Contains(t, Examples(), "<examples>")
}
