package domain

import "time"

type RunID string

// RunRecord is one entry of the local run ledger.
type RunRecord struct {
	ID         RunID
	StartedAt  time.Time
	FinishedAt time.Time
	Dataset    string
	Output     string
	Provider   string
	Model      string
	ToolUse    bool
	Params     RunParams
	Questions  int
	Failures   int
	Metrics    MetricSummary
}

type RunParams struct {
	MaxTurns     int
	MaxRetries   int
	RetryDelay   time.Duration
	Workers      int
	RateCapacity int
}

type MetricSummary struct {
	Accuracy            float64
	AverageLevenshtein  float64
	PartialMatchAverage float64
}

func (r RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
