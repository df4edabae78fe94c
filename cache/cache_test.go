package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/compiler"
)

func TestKey(t *testing.T) {
	a := Key("a.py", "x = 1")
	require.Len(t, a, 64)
	require.Equal(t, a, Key("a.py", "x = 1"))
	require.NotEqual(t, a, Key("b.py", "x = 1"))
	require.NotEqual(t, a, Key("a.py", "x = 2"))
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fileStore, err := NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqliteStore, err := OpenSQLite(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	source := "def add(a, b):\n    return a + b\n"
	code, err := compiler.CompileModuleSource(source, compiler.WithFilename("add.py"))
	require.NoError(t, err)
	key := Key("add.py", source)

	tests := []struct {
		name  string
		store Store
	}{
		{"file", fileStore},
		{"sqlite", sqliteStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := tt.store.Get(ctx, key)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, tt.store.Put(ctx, key, code))
			require.NoError(t, tt.store.Put(ctx, key, code))

			got, ok, err := tt.store.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, code.InstructionBytes(), got.InstructionBytes())
			require.Len(t, got.Children(), 1)
			require.Equal(t, "add", got.Children()[0].Name())
			require.Equal(t, source, got.Source())
		})
	}

	n, err := sqliteStore.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "bad"+Extension), []byte("not cbor"), 0o644))
	_, ok, err := store.Get(ctx, "bad")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		isNil   bool
		file    string
	}{
		{BackendNone, true, ""},
		{BackendFile, false, ""},
		{BackendSQLite, false, SQLiteFile},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "cache")
			store, closeFn, err := Open(tt.backend, dir)
			require.NoError(t, err)
			defer closeFn()
			require.Equal(t, tt.isNil, store == nil)
			if tt.file != "" {
				require.FileExists(t, filepath.Join(dir, tt.file))
			}
		})
	}

	_, _, err := Open("redis", t.TempDir())
	require.EqualError(t, err, `unknown cache backend "redis"`)
}
