package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const (
	storeDirMode  = 0o700
	secretFileMod = 0o600
)

// Store keeps one file per credential under root.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Name() string {
	return "file"
}

func (s *Store) Put(ctx context.Context, name domain.CredentialName, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(value), secretFileMod); err != nil {
		return fmt.Errorf("write credential %q: %w", name, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, name domain.CredentialName) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.pathFor(name)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: file credential %q", domain.ErrCredentialMissing, name)
		}
		return "", fmt.Errorf("read credential %q: %w", name, err)
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}

func (s *Store) Delete(ctx context.Context, name domain.CredentialName) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential %q: %w", name, err)
	}

	return nil
}

func (s *Store) pathFor(name domain.CredentialName) (string, error) {
	if _, err := domain.ParseCredentialName(string(name)); err != nil {
		return "", err
	}

	cleaned := filepath.Clean(string(name))
	if filepath.IsAbs(cleaned) || strings.Contains(cleaned, string(filepath.Separator)) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid credential name %q", name)
	}

	return filepath.Join(s.root, cleaned), nil
}
