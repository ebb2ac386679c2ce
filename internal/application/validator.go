package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

var (
	thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFencePattern  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")
)

type ValidationResult struct {
	Answer domain.AnswerRecord
	// Degraded results carry the cleaned raw text as both thoughts and
	// answer. Cause holds the parse error.
	Degraded bool
	Cause    error
}

type ResponseValidator struct {
	logger *slog.Logger
}

func NewResponseValidator(logger *slog.Logger) *ResponseValidator {
	return &ResponseValidator{logger: loggerOrDiscard(logger)}
}

type answerPayload struct {
	Thoughts *string `json:"thoughts"`
	Answer   *string `json:"answer"`
}

// Validate never fails: unparsable content yields a degraded record.
func (v *ResponseValidator) Validate(content string) ValidationResult {
	cleaned := CleanContent(content)

	record, err := parseAnswer(cleaned)
	if err == nil {
		return ValidationResult{Answer: record}
	}

	v.logger.Warn("model content is not a valid answer record, using raw text", slog.Any("error", err))
	return ValidationResult{
		Answer:   domain.NewAnswer(cleaned, cleaned),
		Degraded: true,
		Cause:    err,
	}
}

// CleanContent removes reasoning blocks and a surrounding markdown fence.
func CleanContent(content string) string {
	cleaned := strings.TrimSpace(thinkBlockPattern.ReplaceAllString(content, ""))
	if match := codeFencePattern.FindStringSubmatch(cleaned); match != nil {
		cleaned = strings.TrimSpace(match[1])
	}
	return cleaned
}

func parseAnswer(cleaned string) (domain.AnswerRecord, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(cleaned)))

	var payload answerPayload
	if err := decoder.Decode(&payload); err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("decode answer record: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.AnswerRecord{}, errors.New("decode answer record: trailing data after object")
	}
	if payload.Thoughts == nil {
		return domain.AnswerRecord{}, errors.New("decode answer record: missing field thoughts")
	}
	if payload.Answer == nil {
		return domain.AnswerRecord{}, errors.New("decode answer record: missing field answer")
	}

	return domain.NewAnswer(*payload.Thoughts, *payload.Answer), nil
}
