package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	portmocks "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports/mocks"
)

const key = domain.CredentialAzureAPIKey

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, key).Return("from-env", nil).Once()

	value, source, err := store.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
	assert.Equal(t, "#0", source)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, key).Return("", fmt.Errorf("%w: unset", domain.ErrCredentialMissing)).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReturnsCombinedErrorWhenAllBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, key).Return("", errors.New("pass failed")).Once()
	fallback.EXPECT().Get(mock.Anything, key).Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), key)
	require.ErrorIs(t, err, domain.ErrCredentialMissing)
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
	assert.ErrorContains(t, err, "azure_openai_api_key")
}

func TestStorePutSkipsReadOnlyBackends(t *testing.T) {
	t.Parallel()

	readOnly := portmocks.NewMockCredentialStore(t)
	writable := portmocks.NewMockCredentialStore(t)
	store := NewStore(readOnly, writable)

	readOnly.EXPECT().Put(mock.Anything, key, "secret").Return(domain.ErrReadOnlyStore).Once()
	writable.EXPECT().Put(mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, key, "secret").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Put(mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, key, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), key, "secret"))
}

func TestStorePutFailsWhenOnlyReadOnlyBackends(t *testing.T) {
	t.Parallel()

	readOnly := portmocks.NewMockCredentialStore(t)
	readOnly.EXPECT().Put(mock.Anything, key, "secret").Return(domain.ErrReadOnlyStore).Once()

	err := NewStore(readOnly).Put(context.Background(), key, "secret")
	require.ErrorIs(t, err, domain.ErrReadOnlyStore)
}

func TestStoreDeleteRemovesFromEveryWritableBackend(t *testing.T) {
	t.Parallel()

	readOnly := portmocks.NewMockCredentialStore(t)
	pass := portmocks.NewMockCredentialStore(t)
	file := portmocks.NewMockCredentialStore(t)
	store := NewStore(readOnly, pass, file)

	readOnly.EXPECT().Delete(mock.Anything, key).Return(domain.ErrReadOnlyStore).Once()
	pass.EXPECT().Delete(mock.Anything, key).Return(errors.New("pass unavailable")).Once()
	file.EXPECT().Delete(mock.Anything, key).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreDeleteReportsFailureWhenNothingDeleted(t *testing.T) {
	t.Parallel()

	pass := portmocks.NewMockCredentialStore(t)
	pass.EXPECT().Delete(mock.Anything, key).Return(errors.New("pass unavailable")).Once()

	err := NewStore(pass).Delete(context.Background(), key)
	require.ErrorContains(t, err, "pass unavailable")
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockCredentialStore(t)
	fallback := portmocks.NewMockCredentialStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, key).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), key)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStoreCheckedRejectsMissingBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked()
	require.Error(t, err)

	_, err = NewStoreChecked(nil)
	require.Error(t, err)
}
