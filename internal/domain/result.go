package domain

// ResultEntry is the externally visible record for one question.
type ResultEntry struct {
	GroundTruth   string      `json:"answer"`
	Thoughts      string      `json:"reasoning"`
	Prediction    *string     `json:"prediction"`
	FailureReason FailureKind `json:"failure_reason,omitempty"`
}

func NewResultEntry(q Question, outcome SessionOutcome) ResultEntry {
	return ResultEntry{
		GroundTruth:   q.GroundTruth,
		Thoughts:      outcome.Answer.Thoughts,
		Prediction:    outcome.Answer.Prediction(),
		FailureReason: outcome.Failure,
	}
}

// Results maps category -> question text -> entry.
type Results map[Category]map[string]ResultEntry

func (r Results) Put(key QuestionKey, entry ResultEntry) {
	byQuestion, ok := r[key.Category]
	if !ok {
		byQuestion = make(map[string]ResultEntry)
		r[key.Category] = byQuestion
	}
	byQuestion[key.Text] = entry
}

func (r Results) Get(key QuestionKey) (ResultEntry, bool) {
	entry, ok := r[key.Category][key.Text]
	return entry, ok
}

func (r Results) Len() int {
	total := 0
	for _, entries := range r {
		total += len(entries)
	}
	return total
}

func (r Results) Failures() int {
	failures := 0
	for _, entries := range r {
		for _, entry := range entries {
			if entry.FailureReason != FailureNone {
				failures++
			}
		}
	}
	return failures
}
