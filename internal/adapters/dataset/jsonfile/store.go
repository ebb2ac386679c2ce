package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const (
	resultsFileMode = 0o644
	resultsDirMode  = 0o755
	tempFilePattern = ".results-*.json.tmp"
)

// Store reads question datasets and reads or writes results files.
type Store struct{}

var _ ports.DatasetStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{}
}

// LoadDataset reads {category: {question: answer}}. List answers are joined
// with ", " so they score with partial matching.
func (s *Store) LoadDataset(ctx context.Context, path string) (domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode dataset file: %w", err)
	}

	dataset := make(domain.Dataset, len(raw))
	for category, questions := range raw {
		entries := make(map[string]string, len(questions))
		for question, answer := range questions {
			truth, err := decodeGroundTruth(answer)
			if err != nil {
				return nil, fmt.Errorf("decode dataset file: %s: %q: %w", category, question, err)
			}
			entries[question] = truth
		}
		dataset[domain.Category(category)] = entries
	}

	return dataset, nil
}

func decodeGroundTruth(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, strings.TrimSpace(fmt.Sprint(item)))
		}
		return strings.Join(parts, ", "), nil
	}

	var number json.Number
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&number); err == nil {
		return number.String(), nil
	}

	return "", errors.New("ground truth must be a string, number, or list")
}

type resultWire struct {
	GroundTruth   string             `json:"answer"`
	Reasoning     *string            `json:"reasoning,omitempty"`
	Thoughts      *string            `json:"thoughts,omitempty"`
	Prediction    *string            `json:"prediction"`
	FailureReason domain.FailureKind `json:"failure_reason,omitempty"`
}

// LoadResults also accepts files that carry "thoughts" instead of
// "reasoning".
func (s *Store) LoadResults(ctx context.Context, path string) (domain.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}

	var raw map[string]map[string]resultWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode results file: %w", err)
	}

	results := make(domain.Results, len(raw))
	for category, entries := range raw {
		for question, wire := range entries {
			entry := domain.ResultEntry{
				GroundTruth:   wire.GroundTruth,
				Prediction:    wire.Prediction,
				FailureReason: wire.FailureReason,
			}
			switch {
			case wire.Reasoning != nil:
				entry.Thoughts = *wire.Reasoning
			case wire.Thoughts != nil:
				entry.Thoughts = *wire.Thoughts
			}
			results.Put(domain.QuestionKey{Category: domain.Category(category), Text: question}, entry)
		}
	}

	return results, nil
}

// SaveResults writes indented JSON through a temp file and rename.
func (s *Store) SaveResults(ctx context.Context, path string, results domain.Results) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return fmt.Errorf("encode results file: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, resultsDirMode); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp results file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp results file: %w", err)
	}
	if err := tempFile.Chmod(resultsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp results file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp results file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace results file: %w", err)
	}
	cleanup = false

	return nil
}
