package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/secrets/env"
	filestore "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/secrets/file"
	passstore "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/secrets/pass"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

// Store consults backends in order. Reads return the first hit; writes go to
// the first writable backend that accepts them.
type Store struct {
	backends []ports.CredentialStore
}

var _ ports.CredentialStore = (*Store)(nil)

var errNoBackends = errors.New("credential chain has no backends")

func NewStore(backends ...ports.CredentialStore) *Store {
	store, err := NewStoreChecked(backends...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(backends ...ports.CredentialStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("credential backend %d is nil", i)
		}
	}

	return &Store{backends: backends}, nil
}

// NewDefault resolves environment variables first, then pass, then files
// under fileRoot.
func NewDefault(fileRoot string) (*Store, error) {
	return NewStoreChecked(envstore.NewStore(), passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, name domain.CredentialName) (string, error) {
	value, _, err := s.Resolve(ctx, name)
	return value, err
}

// Resolve is Get that also reports which backend answered.
func (s *Store) Resolve(ctx context.Context, name domain.CredentialName) (string, string, error) {
	var errs []error
	for i, backend := range s.backends {
		value, err := backend.Get(ctx, name)
		if err == nil {
			return value, backendName(backend, i), nil
		}
		if shouldSkipFallback(err) {
			return "", "", err
		}
		errs = append(errs, fmt.Errorf("%s backend: %w", backendName(backend, i), err))
	}

	return "", "", fmt.Errorf("%w: %s: %w", domain.ErrCredentialMissing, name, errors.Join(errs...))
}

func (s *Store) Put(ctx context.Context, name domain.CredentialName, value string) error {
	var errs []error
	for i, backend := range s.backends {
		err := backend.Put(ctx, name, value)
		if err == nil {
			return nil
		}
		if shouldSkipFallback(err) {
			return err
		}
		if errors.Is(err, domain.ErrReadOnlyStore) {
			continue
		}
		errs = append(errs, fmt.Errorf("%s backend put failed: %w", backendName(backend, i), err))
	}
	if len(errs) == 0 {
		return fmt.Errorf("put credential %s: %w", name, domain.ErrReadOnlyStore)
	}

	return errors.Join(errs...)
}

// Delete removes the credential from every writable backend and succeeds if
// at least one of them did.
func (s *Store) Delete(ctx context.Context, name domain.CredentialName) error {
	var errs []error
	deleted := false
	for i, backend := range s.backends {
		err := backend.Delete(ctx, name)
		if err == nil {
			deleted = true
			continue
		}
		if shouldSkipFallback(err) {
			return err
		}
		if errors.Is(err, domain.ErrReadOnlyStore) {
			continue
		}
		errs = append(errs, fmt.Errorf("%s backend delete failed: %w", backendName(backend, i), err))
	}
	if deleted {
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("delete credential %s: %w", name, domain.ErrReadOnlyStore)
	}

	return errors.Join(errs...)
}

func backendName(backend ports.CredentialStore, index int) string {
	if named, ok := backend.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("#%d", index)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
