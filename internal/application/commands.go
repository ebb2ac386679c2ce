package application

import (
	"fmt"
	"strings"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type RunCommand struct {
	DatasetPath string
	OutputPath  string
	Provider    string
	Model       string
	ToolUse     bool
	Params      domain.RunParams
}

func (c RunCommand) Validate() error {
	if strings.TrimSpace(c.DatasetPath) == "" {
		return fmt.Errorf("dataset path is required")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Params.MaxTurns < 1 {
		return fmt.Errorf("max turns must be at least 1, got %d", c.Params.MaxTurns)
	}
	if c.Params.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.Params.MaxRetries)
	}
	if c.Params.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Params.Workers)
	}
	return nil
}
