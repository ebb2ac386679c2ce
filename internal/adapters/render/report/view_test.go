package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/scoring"
)

func strPtr(value string) *string {
	return &value
}

func sampleResults() domain.Results {
	results := domain.Results{}
	results.Put(domain.QuestionKey{Category: "Gene alias", Text: "What is the official gene symbol of SNAT6?"},
		domain.ResultEntry{GroundTruth: "SLC38A6", Thoughts: "alias lookup", Prediction: strPtr("SLC38A6")})
	results.Put(domain.QuestionKey{Category: "Gene alias", Text: "What is the official gene symbol of IMX?"},
		domain.ResultEntry{GroundTruth: "SIX6", Thoughts: "guess", Prediction: strPtr("SIX3")})
	results.Put(domain.QuestionKey{Category: "SNP location", Text: "Which chromosome does SNP rs1217074595 locate on?"},
		domain.ResultEntry{GroundTruth: "chr10", Thoughts: "Max turns reached", FailureReason: domain.FailureTurnBudget})
	return results
}

func TestRenderReportShowsOverallAndCategories(t *testing.T) {
	output, err := Render(scoring.Evaluate(sampleResults()), RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "GeneGPT Evaluation Report")
	assert.Contains(t, output, "questions: 3  answered: 2  failures: 1")
	assert.Contains(t, output, "Overall (3)")
	assert.Contains(t, output, "Gene alias (2)")
	assert.Contains(t, output, "SNP location (1)")
	assert.Contains(t, output, "exact match:")
	assert.Contains(t, output, " 33%")
	assert.Contains(t, output, " 50%")
	assert.Contains(t, output, "0.50 (over 2 predictions)")
	assert.Contains(t, output, "n/a")
	assert.Contains(t, output, "failed sessions: 1")
	assert.NotContains(t, output, "Misses")
}

func TestRenderReportListsMisses(t *testing.T) {
	output, err := Render(scoring.Evaluate(sampleResults()), RenderOptions{ShowMisses: true})

	require.NoError(t, err)
	assert.Contains(t, output, "Misses")
	assert.Contains(t, output, `expected "SIX6", got "SIX3"`)
	assert.Contains(t, output, `expected "chr10", got "<no answer>"`)
	assert.NotContains(t, output, `got "SLC38A6"`)
}

func TestRenderReportTruncatesMisses(t *testing.T) {
	output, err := Render(scoring.Evaluate(sampleResults()), RenderOptions{ShowMisses: true, MaxMisses: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(output, "expected "))
	assert.Contains(t, output, "...")
}

func TestRenderReportEmpty(t *testing.T) {
	output, err := Render(scoring.Evaluate(domain.Results{}), RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "No results to score.")
}

func TestRenderRuns(t *testing.T) {
	started := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := RenderRuns([]domain.RunRecord{
		{
			ID:         "3f2a9c1e-4b7d-4e0a-9c51-1d2e3f4a5b6c",
			StartedAt:  started,
			FinishedAt: started.Add(3*time.Minute + 20*time.Second),
			Dataset:    "data/genehop.json",
			Output:     "results/genehop.json",
			Provider:   "azure",
			Model:      "gpt-4.1",
			ToolUse:    true,
			Questions:  50,
			Failures:   2,
			Metrics:    domain.MetricSummary{Accuracy: 0.8, PartialMatchAverage: 0.85, AverageLevenshtein: 1.25},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "runs: 1")
	assert.Contains(t, output, "3f2a9c1e  azure/gpt-4.1 (tools)")
	assert.Contains(t, output, "took 3m20s")
	assert.Contains(t, output, "data/genehop.json -> results/genehop.json")
	assert.Contains(t, output, " 80%")
	assert.Contains(t, output, " 85%")
	assert.Contains(t, output, "1.25")
	assert.Contains(t, output, "failed sessions: 2 of 50")
}

func TestRenderRunsEmpty(t *testing.T) {
	output, err := RenderRuns(nil)

	require.NoError(t, err)
	assert.Contains(t, output, "No runs recorded.")
}

func TestRenderProgressBarWidth(t *testing.T) {
	s := newStyles()

	bar := renderProgressBar(50, 10, s)
	assert.Equal(t, 5, strings.Count(bar, "="))
	assert.Equal(t, 5, strings.Count(bar, "-"))

	assert.Equal(t, 10, strings.Count(renderProgressBar(150, 10, s), "="))
	assert.Empty(t, renderProgressBar(50, 0, s))
}
