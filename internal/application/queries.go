package application

import (
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/scoring"
)

type RunSummary struct {
	Run     domain.RunRecord
	Results domain.Results
	Report  scoring.Report
}
