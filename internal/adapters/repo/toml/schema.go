package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int         `toml:"version"`
	Runs    []runSchema `toml:"runs"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported runs schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type runSchema struct {
	ID         string        `toml:"id"`
	StartedAt  string        `toml:"started_at"`
	FinishedAt string        `toml:"finished_at"`
	Dataset    string        `toml:"dataset"`
	Output     string        `toml:"output"`
	Provider   string        `toml:"provider"`
	Model      string        `toml:"model"`
	ToolUse    bool          `toml:"tool_use"`
	Questions  int           `toml:"questions"`
	Failures   int           `toml:"failures"`
	Params     paramsSchema  `toml:"params"`
	Metrics    metricsSchema `toml:"metrics"`
}

type paramsSchema struct {
	MaxTurns     int    `toml:"max_turns"`
	MaxRetries   int    `toml:"max_retries"`
	RetryDelay   string `toml:"retry_delay"`
	Workers      int    `toml:"workers"`
	RateCapacity int    `toml:"rate_capacity"`
}

type metricsSchema struct {
	Accuracy            float64 `toml:"accuracy"`
	AverageLevenshtein  float64 `toml:"average_levenshtein"`
	PartialMatchAverage float64 `toml:"partial_match_average"`
}
