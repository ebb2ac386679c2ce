package ports

import (
	"context"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type DatasetStore interface {
	LoadDataset(ctx context.Context, path string) (domain.Dataset, error)
	LoadResults(ctx context.Context, path string) (domain.Results, error)
	SaveResults(ctx context.Context, path string, results domain.Results) error
}
