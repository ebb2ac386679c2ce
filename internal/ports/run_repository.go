package ports

import (
	"context"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type RunRepository interface {
	GetByID(ctx context.Context, id domain.RunID) (domain.RunRecord, error)
	List(ctx context.Context) ([]domain.RunRecord, error)
	Save(ctx context.Context, run domain.RunRecord) error
}
