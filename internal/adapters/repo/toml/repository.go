package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const (
	RunsPathKey     = "runs.path"
	runsFileMode    = 0o600
	runsDirMode     = 0o700
	runsConfigDir   = ".genegpt"
	runsConfigFile  = "runs.toml"
	tempFilePattern = ".runs-*.toml.tmp"
)

// Repository is the local run ledger.
type Repository struct {
	runsPath string
	mu       *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RunRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	runsPath := cfg.GetString(RunsPathKey)
	if runsPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		runsPath = path
	}

	runsPath, err := normalizeRunsPath(runsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{runsPath: runsPath, mu: lockForPath(runsPath)}, nil
}

func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, runsConfigDir, runsConfigFile), nil
}

func (r *Repository) Path() string {
	return r.runsPath
}

// Save replaces the record with the same id or appends a new one.
func (r *Repository) Save(ctx context.Context, run domain.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(run)
	updated := false
	for i := range file.Runs {
		if file.Runs[i].ID == encoded.ID {
			file.Runs[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Runs = append(file.Runs, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) GetByID(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RunRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.RunRecord{}, err
	}

	for _, entry := range file.Runs {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
}

func (r *Repository) List(ctx context.Context) ([]domain.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	runs := make([]domain.RunRecord, 0, len(file.Runs))
	for _, entry := range file.Runs {
		runs = append(runs, fromSchema(entry))
	}

	return runs, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.runsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read runs file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode runs file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeRunsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve runs path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.runsPath), runsDirMode); err != nil {
		return fmt.Errorf("create runs directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode runs file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.runsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp runs file: %w", err)
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
		return fmt.Errorf("write temp runs file: %w", err)
	}
	if err := tempFile.Chmod(runsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp runs file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp runs file: %w", err)
	}
	if err := os.Rename(tempName, r.runsPath); err != nil {
		return fmt.Errorf("replace runs file: %w", err)
	}
	cleanup = false

	return nil
}

func toSchema(run domain.RunRecord) runSchema {
	return runSchema{
		ID:         string(run.ID),
		StartedAt:  formatTime(run.StartedAt),
		FinishedAt: formatTime(run.FinishedAt),
		Dataset:    run.Dataset,
		Output:     run.Output,
		Provider:   run.Provider,
		Model:      run.Model,
		ToolUse:    run.ToolUse,
		Questions:  run.Questions,
		Failures:   run.Failures,
		Params: paramsSchema{
			MaxTurns:     run.Params.MaxTurns,
			MaxRetries:   run.Params.MaxRetries,
			RetryDelay:   formatDuration(run.Params.RetryDelay),
			Workers:      run.Params.Workers,
			RateCapacity: run.Params.RateCapacity,
		},
		Metrics: metricsSchema{
			Accuracy:            run.Metrics.Accuracy,
			AverageLevenshtein:  run.Metrics.AverageLevenshtein,
			PartialMatchAverage: run.Metrics.PartialMatchAverage,
		},
	}
}

func fromSchema(run runSchema) domain.RunRecord {
	return domain.RunRecord{
		ID:         domain.RunID(run.ID),
		StartedAt:  parseTime(run.StartedAt),
		FinishedAt: parseTime(run.FinishedAt),
		Dataset:    run.Dataset,
		Output:     run.Output,
		Provider:   run.Provider,
		Model:      run.Model,
		ToolUse:    run.ToolUse,
		Questions:  run.Questions,
		Failures:   run.Failures,
		Params: domain.RunParams{
			MaxTurns:     run.Params.MaxTurns,
			MaxRetries:   run.Params.MaxRetries,
			RetryDelay:   parseDuration(run.Params.RetryDelay),
			Workers:      run.Params.Workers,
			RateCapacity: run.Params.RateCapacity,
		},
		Metrics: domain.MetricSummary{
			Accuracy:            run.Metrics.Accuracy,
			AverageLevenshtein:  run.Metrics.AverageLevenshtein,
			PartialMatchAverage: run.Metrics.PartialMatchAverage,
		},
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func formatDuration(value time.Duration) string {
	if value == 0 {
		return ""
	}
	return value.String()
}
