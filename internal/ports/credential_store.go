package ports

import (
	"context"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

// CredentialStore resolves named credentials. Get returns an error wrapping
// domain.ErrCredentialMissing when the store has no value.
type CredentialStore interface {
	Get(ctx context.Context, name domain.CredentialName) (string, error)
	Put(ctx context.Context, name domain.CredentialName, value string) error
	Delete(ctx context.Context, name domain.CredentialName) error
}
