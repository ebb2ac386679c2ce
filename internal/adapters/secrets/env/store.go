package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

type lookupFunc func(key string) (string, bool)

// Store reads credentials from their well-known environment variables.
type Store struct {
	lookup lookupFunc
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{lookup: os.LookupEnv}
}

func (s *Store) Name() string {
	return "env"
}

func (s *Store) Get(ctx context.Context, name domain.CredentialName) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := name.EnvVar()
	if key == "" {
		return "", fmt.Errorf("unknown credential %q", name)
	}
	value, ok := s.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s is not set", domain.ErrCredentialMissing, key)
	}

	return strings.TrimSpace(value), nil
}

func (s *Store) Put(context.Context, domain.CredentialName, string) error {
	return fmt.Errorf("put: %w", domain.ErrReadOnlyStore)
}

func (s *Store) Delete(context.Context, domain.CredentialName) error {
	return fmt.Errorf("delete: %w", domain.ErrReadOnlyStore)
}
