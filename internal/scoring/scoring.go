package scoring

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

// ExactMatch is 1 when the prediction equals the ground truth verbatim.
func ExactMatch(truth string, prediction *string) float64 {
	if prediction == nil || *prediction != truth {
		return 0
	}
	return 1
}

func Distance(truth, prediction string) int {
	return levenshtein.ComputeDistance(truth, prediction)
}

// PartialMatch is the share of comma-separated ground-truth items that also
// appear in the prediction. Items are compared trimmed and case-folded.
func PartialMatch(truth string, prediction *string) float64 {
	if prediction == nil {
		return 0
	}
	want := splitItems(truth)
	if len(want) == 0 {
		return 0
	}
	got := splitItems(*prediction)
	if len(got) == 0 {
		return 0
	}

	overlap := 0
	for item := range want {
		if _, ok := got[item]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(want))
}

func splitItems(raw string) map[string]struct{} {
	items := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" {
			continue
		}
		items[item] = struct{}{}
	}
	return items
}

type Score struct {
	Category    domain.Category
	Question    string
	GroundTruth string
	Prediction  *string
	Match       float64
	Partial     float64
	// Distance is only meaningful when Prediction is non-nil.
	Distance int
}

func ScoreEntry(key domain.QuestionKey, entry domain.ResultEntry) Score {
	score := Score{
		Category:    key.Category,
		Question:    key.Text,
		GroundTruth: entry.GroundTruth,
		Prediction:  entry.Prediction,
		Match:       ExactMatch(entry.GroundTruth, entry.Prediction),
		Partial:     PartialMatch(entry.GroundTruth, entry.Prediction),
	}
	if entry.Prediction != nil {
		score.Distance = Distance(entry.GroundTruth, *entry.Prediction)
	}
	return score
}

type Summary struct {
	Category  domain.Category
	Questions int
	Failures  int
	// Predicted counts entries with a non-nil prediction, the population of
	// the Levenshtein mean.
	Predicted           int
	Accuracy            float64
	AverageLevenshtein  float64
	PartialMatchAverage float64
}

func (s Summary) Metrics() domain.MetricSummary {
	return domain.MetricSummary{
		Accuracy:            s.Accuracy,
		AverageLevenshtein:  s.AverageLevenshtein,
		PartialMatchAverage: s.PartialMatchAverage,
	}
}

type Report struct {
	Overall    Summary
	Categories []Summary
	Scores     []Score
}

// Evaluate scores every entry and aggregates overall and per-category means.
func Evaluate(results domain.Results) Report {
	var report Report
	byCategory := make(map[domain.Category]*accumulator)
	overall := &accumulator{}

	categories := make([]domain.Category, 0, len(results))
	for category := range results {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, category := range categories {
		entries := results[category]
		questions := make([]string, 0, len(entries))
		for question := range entries {
			questions = append(questions, question)
		}
		sort.Strings(questions)

		acc := &accumulator{}
		byCategory[category] = acc
		for _, question := range questions {
			entry := entries[question]
			score := ScoreEntry(domain.QuestionKey{Category: category, Text: question}, entry)
			report.Scores = append(report.Scores, score)
			acc.add(score, entry.FailureReason)
			overall.add(score, entry.FailureReason)
		}
	}

	report.Overall = overall.summary("")
	for _, category := range categories {
		report.Categories = append(report.Categories, byCategory[category].summary(category))
	}
	return report
}

type accumulator struct {
	questions int
	failures  int
	predicted int
	match     float64
	partial   float64
	distance  int
}

func (a *accumulator) add(score Score, failure domain.FailureKind) {
	a.questions++
	if failure != domain.FailureNone {
		a.failures++
	}
	a.match += score.Match
	a.partial += score.Partial
	if score.Prediction != nil {
		a.predicted++
		a.distance += score.Distance
	}
}

func (a *accumulator) summary(category domain.Category) Summary {
	summary := Summary{
		Category:  category,
		Questions: a.questions,
		Failures:  a.failures,
		Predicted: a.predicted,
	}
	if a.questions > 0 {
		summary.Accuracy = a.match / float64(a.questions)
		summary.PartialMatchAverage = a.partial / float64(a.questions)
	}
	if a.predicted > 0 {
		summary.AverageLevenshtein = float64(a.distance) / float64(a.predicted)
	}
	return summary
}
