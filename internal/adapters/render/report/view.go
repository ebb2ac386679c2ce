package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/scoring"
)

const barWidth = 24

type RenderOptions struct {
	// ShowMisses lists every question whose prediction was not an exact
	// match, up to MaxMisses when it is positive.
	ShowMisses bool
	MaxMisses  int
}

// Render draws the evaluation report for a results file.
func Render(report scoring.Report, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderReportView(report, opts, s)
	})
}

// RenderRuns draws the run ledger, newest first as given.
func RenderRuns(runs []domain.RunRecord) (string, error) {
	return run(func(s styles) string {
		return renderRunsView(runs, s)
	})
}

func renderReportView(report scoring.Report, opts RenderOptions, s styles) string {
	overall := report.Overall
	lines := []string{
		s.title.Render("GeneGPT Evaluation Report"),
		s.header.Render(fmt.Sprintf("questions: %d  answered: %d  failures: %d", overall.Questions, overall.Predicted, overall.Failures)),
	}

	if overall.Questions == 0 {
		lines = append(lines, s.empty.Render("No results to score."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderSummary("Overall", overall, s)))
	for _, summary := range report.Categories {
		lines = append(lines, s.section.Render(renderSummary(string(summary.Category), summary, s)))
	}

	if opts.ShowMisses {
		lines = append(lines, s.section.Render(renderMisses(report.Scores, opts.MaxMisses, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSummary(title string, summary scoring.Summary, s styles) string {
	parts := []string{
		s.category.Render(fmt.Sprintf("%s (%d)", title, summary.Questions)),
		metricLine("exact match:", summary.Accuracy, s),
		metricLine("partial match:", summary.PartialMatchAverage, s),
		s.metricKey.Render(fmt.Sprintf("%-15s", "levenshtein:")) + " " + s.detail.Render(levenshteinLabel(summary)),
	}
	if summary.Failures > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("failed sessions: %d", summary.Failures)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func levenshteinLabel(summary scoring.Summary) string {
	if summary.Predicted == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f (over %d predictions)", summary.AverageLevenshtein, summary.Predicted)
}

func metricLine(label string, fraction float64, s styles) string {
	percent := clampPercent(fraction * 100)
	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(percent, 0, 100))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.metricKey.Render(fmt.Sprintf("%-15s", label)),
		" ",
		renderProgressBar(percent, barWidth, s),
		" ",
		percentStyle.Render(fmt.Sprintf("%3.0f%%", percent)),
	)
}

func renderMisses(scores []scoring.Score, limit int, s styles) string {
	parts := []string{s.category.Render("Misses")}
	shown := 0
	for _, score := range scores {
		if score.Match == 1 {
			continue
		}
		if limit > 0 && shown == limit {
			parts = append(parts, s.empty.Render("..."))
			break
		}
		got := "<no answer>"
		if score.Prediction != nil {
			got = *score.Prediction
		}
		parts = append(parts, s.miss.Render(fmt.Sprintf("[%s] %s: expected %q, got %q", score.Category, score.Question, score.GroundTruth, got)))
		shown++
	}
	if shown == 0 {
		parts = append(parts, s.empty.Render("Every prediction matched."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderRunsView(runs []domain.RunRecord, s styles) string {
	lines := []string{
		s.title.Render("GeneGPT Runs"),
		s.header.Render(fmt.Sprintf("runs: %d", len(runs))),
	}

	if len(runs) == 0 {
		lines = append(lines, s.empty.Render("No runs recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, record := range runs {
		lines = append(lines, s.section.Render(renderRun(record, s)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRun(record domain.RunRecord, s styles) string {
	mode := "direct"
	if record.ToolUse {
		mode = "tools"
	}
	parts := []string{
		s.category.Render(fmt.Sprintf("%s  %s/%s (%s)", shortID(record.ID), record.Provider, record.Model, mode)),
		s.detail.Render(fmt.Sprintf("started %s, took %s", formatStarted(record.StartedAt), formatDuration(record.Duration()))),
		s.detail.Render(fmt.Sprintf("dataset: %s -> %s", record.Dataset, record.Output)),
		metricLine("exact match:", record.Metrics.Accuracy, s),
		metricLine("partial match:", record.Metrics.PartialMatchAverage, s),
		s.metricKey.Render(fmt.Sprintf("%-15s", "levenshtein:")) + " " + s.detail.Render(fmt.Sprintf("%.2f", record.Metrics.AverageLevenshtein)),
	}
	if record.Failures > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("failed sessions: %d of %d", record.Failures, record.Questions)))
	} else {
		parts = append(parts, s.detail.Render(fmt.Sprintf("questions: %d", record.Questions)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func shortID(id domain.RunID) string {
	value := string(id)
	if len(value) > 8 {
		return value[:8]
	}
	return value
}

func formatStarted(started time.Time) string {
	if started.IsZero() {
		return "unknown"
	}
	return started.Local().Format("2006-01-02 15:04")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return d.Round(time.Second).String()
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	filled = max(0, min(filled, width))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor maps value onto the 240-255 greyscale ramp.
func interpolateColor(value, lo, hi float64) lipgloss.Color {
	if hi == lo {
		return lipgloss.Color("255")
	}

	normalized := (value - lo) / (hi - lo)
	normalized = max(0, min(normalized, 1))

	code := int(240 + 15*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", code))
}
