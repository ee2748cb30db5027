package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemorySet(t *testing.T) {
	s := NewMemorySet("demo:1")
	require.True(t, s.Contains("demo:1"))
	require.False(t, s.Contains("demo:2"))

	require.NoError(t, s.Add(context.Background(), "demo:2"))
	require.NoError(t, s.Add(context.Background(), "demo:2"))
	require.Equal(t, []string{"demo:1", "demo:2"}, s.Keys())
}

func TestFileSet_PersistsEachAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", DefaultFileName)
	ctx := context.Background()

	s, err := LoadFileSet(path, zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, s.Keys())

	require.NoError(t, s.Add(ctx, "web:3"))
	require.NoError(t, s.Add(ctx, "demo:7"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal(data, &keys))
	require.Equal(t, []string{"demo:7", "web:3"}, keys)

	reloaded, err := LoadFileSet(path, zap.NewNop())
	require.NoError(t, err)
	require.True(t, reloaded.Contains("demo:7"))
	require.True(t, reloaded.Contains("web:3"))
}

func TestFileSet_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := LoadFileSet(path, zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, s.Keys())

	require.NoError(t, s.Add(context.Background(), "demo:1"))
	reloaded, err := LoadFileSet(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"demo:1"}, reloaded.Keys())
}

func TestFileSet_AddKeepsKeyWhenSaveFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", DefaultFileName)

	s, err := LoadFileSet(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "sub")))

	err = s.Add(context.Background(), "demo:1")
	require.Error(t, err)
	require.True(t, s.Contains("demo:1"))
}

func TestSQLiteSet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLiteSet(ctx, path)
	require.NoError(t, err)

	require.False(t, s.Contains("demo:7"))
	require.NoError(t, s.Add(ctx, "demo:7"))
	require.NoError(t, s.Add(ctx, "demo:7"))
	require.NoError(t, s.Add(ctx, "api:1"))
	require.True(t, s.Contains("demo:7"))
	require.Equal(t, []string{"api:1", "demo:7"}, s.Keys())
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteSet(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, reopened.Contains("api:1"))
}

func TestSQLiteSet_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteSet(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(ctx, "demo:1"))
	require.True(t, s.Contains("demo:1"))
}

func TestSQLiteSet_DatabaseErrorKeepsKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLiteSet(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "demo:1"))
	require.NoError(t, s.db.Close())

	require.True(t, s.Contains("demo:1"))

	err = s.Add(ctx, "demo:2")
	require.Error(t, err)
	require.True(t, s.Contains("demo:2"))
	require.Equal(t, []string{"demo:1", "demo:2"}, s.Keys())
}
