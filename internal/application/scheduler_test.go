package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

func numberedQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		category := domain.Category(fmt.Sprintf("category-%d", i%3))
		questions = append(questions, domain.Question{
			Key:         domain.QuestionKey{Category: category, Text: fmt.Sprintf("question %d", i)},
			GroundTruth: fmt.Sprintf("answer %d", i),
		})
	}
	return questions
}

func TestSchedulerProducesOneEntryPerQuestion(t *testing.T) {
	t.Parallel()

	const workers = 3
	questions := numberedQuestions(20)

	var current, peak atomic.Int64
	answerer := AnswerFunc(func(_ context.Context, q domain.Question) domain.SessionOutcome {
		n := current.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		current.Add(-1)
		return domain.SessionOutcome{State: domain.SessionCompleted, Answer: domain.NewAnswer("t", q.GroundTruth)}
	})

	var progressMu sync.Mutex
	var progress []Progress
	scheduler := NewScheduler(workers, WithProgress(func(p Progress) {
		progressMu.Lock()
		defer progressMu.Unlock()
		progress = append(progress, p)
	}))

	results := scheduler.Run(context.Background(), questions, answerer)

	require.Equal(t, len(questions), results.Len())
	for _, q := range questions {
		entry, ok := results.Get(q.Key)
		require.True(t, ok, q.Key.String())
		require.NotNil(t, entry.Prediction)
		assert.Equal(t, q.GroundTruth, *entry.Prediction)
	}
	assert.LessOrEqual(t, peak.Load(), int64(workers))
	require.Len(t, progress, len(questions))
	assert.Equal(t, len(questions), progress[len(progress)-1].Done)
	assert.Equal(t, len(questions), progress[0].Total)
}

func TestSchedulerIsolatesPanickingSession(t *testing.T) {
	t.Parallel()

	questions := numberedQuestions(5)
	bad := questions[2].Key

	answerer := AnswerFunc(func(_ context.Context, q domain.Question) domain.SessionOutcome {
		if q.Key == bad {
			panic("nil map write")
		}
		return domain.SessionOutcome{State: domain.SessionCompleted, Answer: domain.NewAnswer("t", "ok")}
	})

	results := NewScheduler(2).Run(context.Background(), questions, answerer)

	require.Equal(t, 5, results.Len())
	assert.Equal(t, 1, results.Failures())

	entry, ok := results.Get(bad)
	require.True(t, ok)
	assert.Equal(t, domain.FailureScheduling, entry.FailureReason)
	assert.Nil(t, entry.Prediction)
	assert.Contains(t, entry.Thoughts, "nil map write")
	assert.Equal(t, questions[2].GroundTruth, entry.GroundTruth)
}

func TestSchedulerAnswerOneRecoversPanic(t *testing.T) {
	t.Parallel()

	question := numberedQuestions(1)[0]
	answerer := AnswerFunc(func(context.Context, domain.Question) domain.SessionOutcome {
		panic("backend exploded")
	})

	outcome := NewScheduler(1).AnswerOne(context.Background(), question, answerer)

	assert.Equal(t, domain.SessionFailed, outcome.State)
	assert.Equal(t, domain.FailureScheduling, outcome.Failure)
	assert.Nil(t, outcome.Answer.Prediction())
	assert.Contains(t, outcome.Answer.Thoughts, "Scheduling error: backend exploded")
}

func TestSchedulerRecordsFailedSessions(t *testing.T) {
	t.Parallel()

	questions := numberedQuestions(2)
	answerer := AnswerFunc(func(context.Context, domain.Question) domain.SessionOutcome {
		return domain.SessionOutcome{
			State:   domain.SessionFailed,
			Failure: domain.FailureNoContent,
			Answer:  domain.NoAnswer("LLM provided no content"),
		}
	})

	results := NewScheduler(0).Run(context.Background(), questions, answerer)
	require.Equal(t, 2, results.Len())
	assert.Equal(t, 2, results.Failures())
}
