package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyAuthToken, "tok"))
	require.NoError(t, s.Set(ctx, KeyTheme, "dark"))

	value, ok, err := s.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", value)

	require.NoError(t, s.Delete(ctx, KeyAuthToken, KeyCurrentUser))
	_, ok, err = s.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	require.False(t, ok)

	value, ok, err = s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", value)

	require.ErrorIs(t, s.Set(ctx, "", "x"), ErrInvalidKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	value, ok, err := reopened.Get(context.Background(), KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, _, err = s.Get(context.Background(), KeyAuthToken)
	require.Error(t, err)
}
