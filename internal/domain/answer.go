package domain

// AnswerRecord is the terminal artifact of a session. Answered is false when
// the session produced no answer at all; Answer is then meaningless.
type AnswerRecord struct {
	Thoughts string
	Answer   string
	Answered bool
}

func NewAnswer(thoughts, answer string) AnswerRecord {
	return AnswerRecord{Thoughts: thoughts, Answer: answer, Answered: true}
}

func NoAnswer(thoughts string) AnswerRecord {
	return AnswerRecord{Thoughts: thoughts}
}

// Prediction returns nil for the no-answer sentinel.
func (a AnswerRecord) Prediction() *string {
	if !a.Answered {
		return nil
	}
	answer := a.Answer
	return &answer
}
