package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

func TestStorePutUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "genegpt/azure_openai_api_key"}, args)
			assert.Equal(t, "top-secret\n", input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Put(context.Background(), domain.CredentialAzureAPIKey, "top-secret"))
	assert.True(t, called)
}

func TestStoreGetUsesPassShowAndTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "genegpt/ncbi_api_key"}, args)
			assert.Empty(t, input)
			return "top-secret\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), domain.CredentialNCBIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "top-secret", value)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "genegpt/ollama_api_key"}, args)
			return "", "", nil
		},
	}

	require.NoError(t, store.Delete(context.Background(), domain.CredentialOllamaAPIKey))
}

func TestStoreGetErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing entry", func(t *testing.T) {
		t.Parallel()

		store := &Store{run: func(context.Context, string, ...string) (string, string, error) {
			return "", "Error: genegpt/ncbi_api_key is not in the password store.", errors.New("exit status 1")
		}}
		_, err := store.Get(context.Background(), domain.CredentialNCBIAPIKey)
		require.ErrorIs(t, err, domain.ErrCredentialMissing)
	})

	t.Run("other failure", func(t *testing.T) {
		t.Parallel()

		store := &Store{run: func(context.Context, string, ...string) (string, string, error) {
			return "", "gpg: decryption failed", errors.New("exit status 2")
		}}
		_, err := store.Get(context.Background(), domain.CredentialNCBIAPIKey)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrCredentialMissing)
		assert.ErrorContains(t, err, "pass get")
		assert.ErrorContains(t, err, "genegpt/ncbi_api_key")
		assert.ErrorContains(t, err, "decryption failed")
	})
}
