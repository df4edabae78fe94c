package importer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/cache"
	"github.com/deepnoodle-ai/slither/object"
)

// recordingExecutor marks each executed module with a global and records
// the order of execution.
type recordingExecutor struct {
	executed []string
}

func (r *recordingExecutor) exec(ctx context.Context, code *bytecode.Code, module *object.Module) error {
	r.executed = append(r.executed, module.Name())
	module.SetGlobal("loaded", object.True)
	return nil
}

func (r *recordingExecutor) context() context.Context {
	return WithExecutor(context.Background(), r.exec)
}

func TestMemoryImporter(t *testing.T) {
	rec := &recordingExecutor{}
	imp := NewMemory(map[string]string{
		"pkg":     "x = 1\n",
		"pkg.sub": "y = 2\n",
		"single":  "z = 3\n",
	})
	ctx := rec.context()

	module, err := imp.ResolveAndLoad(ctx, "pkg.sub", "__main__")
	require.NoError(t, err)
	require.Equal(t, "pkg.sub", module.Name())
	require.Equal(t, "<pkg.sub>", module.Path())
	require.Equal(t, []string{"pkg", "pkg.sub"}, rec.executed)

	parent, err := imp.ResolveAndLoad(ctx, "pkg", "__main__")
	require.NoError(t, err)
	sub, ok := parent.Global("sub")
	require.True(t, ok)
	require.Same(t, module, sub)
	pkgPath, ok := parent.Global("__path__")
	require.True(t, ok)
	require.Equal(t, "['.']", pkgPath.Inspect())
	pkgName, _ := module.Global("__package__")
	require.Equal(t, "'pkg'", pkgName.Inspect())

	// Loaded modules are memoized
	_, err = imp.ResolveAndLoad(ctx, "pkg.sub", "__main__")
	require.NoError(t, err)
	require.Len(t, rec.executed, 2)

	loaded := imp.Loaded()
	sort.Strings(loaded)
	require.Equal(t, []string{"pkg", "pkg.sub"}, loaded)
}

func TestResolveRelative(t *testing.T) {
	rec := &recordingExecutor{}
	imp := NewMemory(map[string]string{
		"a":       "",
		"a.b":     "",
		"a.b.c":   "",
		"a.b.d":   "",
		"a.other": "",
	})
	ctx := rec.context()
	_, err := imp.ResolveAndLoad(ctx, "a.b.c", "")
	require.NoError(t, err)

	tests := []struct {
		specifier string
		requester string
		want      string
	}{
		{".d", "a.b.c", "a.b.d"},
		{".", "a.b.c", "a.b"},
		{"..other", "a.b.c", "a.other"},
		{".c", "a.b", "a.b.c"},
		{"..", "a.b", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.specifier+" from "+tt.requester, func(t *testing.T) {
			module, err := imp.ResolveAndLoad(ctx, tt.specifier, tt.requester)
			require.NoError(t, err)
			require.Equal(t, tt.want, module.Name())
		})
	}
}

func TestResolveErrors(t *testing.T) {
	imp := NewMemory(map[string]string{"a": ""})
	ctx := (&recordingExecutor{}).context()
	tests := []struct {
		specifier string
		requester string
		typeName  string
		message   string
	}{
		{"missing", "__main__", "ModuleNotFoundError", "No module named 'missing'"},
		{"a.missing", "__main__", "ModuleNotFoundError", "No module named 'a.missing'"},
		{".x", "__main__", "ImportError", "attempted relative import with no known parent package"},
		{"...x", "a", "ImportError", "attempted relative import beyond top-level package"},
	}
	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			_, err := imp.ResolveAndLoad(ctx, tt.specifier, tt.requester)
			require.Error(t, err)
			exc := object.AsException(err)
			require.Equal(t, tt.typeName, exc.TypeName)
			require.Equal(t, tt.message, exc.Message)
		})
	}
}

func TestMissingExecutor(t *testing.T) {
	imp := NewMemory(map[string]string{"a": "x = 1\n"})
	_, err := imp.ResolveAndLoad(context.Background(), "a", "__main__")
	require.Error(t, err)
	require.Equal(t, "ImportError", object.AsException(err).TypeName)
}

func TestFailedModuleIsNotMemoized(t *testing.T) {
	imp := NewMemory(map[string]string{"a": "x = 1\n"})
	calls := 0
	ctx := WithExecutor(context.Background(), func(ctx context.Context, code *bytecode.Code, module *object.Module) error {
		calls++
		if calls == 1 {
			return object.ValueErrorf("first load fails")
		}
		return nil
	})
	_, err := imp.ResolveAndLoad(ctx, "a", "__main__")
	require.Error(t, err)
	require.Empty(t, imp.Loaded())

	_, err = imp.ResolveAndLoad(ctx, "a", "__main__")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestSyntaxErrorInModule(t *testing.T) {
	imp := NewMemory(map[string]string{"bad": "def (:\n"})
	_, err := imp.ResolveAndLoad((&recordingExecutor{}).context(), "bad", "__main__")
	require.Error(t, err)
	require.Equal(t, "SyntaxError", object.AsException(err).TypeName)
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func TestLocalImporter(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "tools", "__init__.py"), "")
	writeFile(t, filepath.Join(first, "tools", "text.py"), "def shout(s):\n    return s.upper()\n")
	writeFile(t, filepath.Join(second, "extra.py"), "VALUE = 1\n")

	rec := &recordingExecutor{}
	imp := NewLocal(WithRoots(first, second))
	ctx := rec.context()

	module, err := imp.ResolveAndLoad(ctx, "tools.text", "__main__")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(first, "tools", "text.py"), module.Path())

	pkg, err := imp.ResolveAndLoad(ctx, "tools", "__main__")
	require.NoError(t, err)
	path, ok := pkg.Global("__path__")
	require.True(t, ok)
	require.Contains(t, path.Inspect(), filepath.Join(first, "tools"))

	extra, err := imp.ResolveAndLoad(ctx, "extra", "__main__")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(second, "extra.py"), extra.Path())

	_, err = imp.ResolveAndLoad(ctx, "nowhere", "__main__")
	require.Equal(t, "ModuleNotFoundError", object.AsException(err).TypeName)
}

func TestCacheIsConsulted(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	sources := map[string]string{"m": "x = 1\n"}
	ctx := (&recordingExecutor{}).context()

	_, err = NewMemory(sources, WithCache(store)).ResolveAndLoad(ctx, "m", "__main__")
	require.NoError(t, err)

	code, ok, err := store.Get(ctx, cache.Key("<m>", "x = 1\n"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<m>", code.Filename())

	// A second importer with the same store loads the cached code.
	_, err = NewMemory(sources, WithCache(store)).ResolveAndLoad(ctx, "m", "__main__")
	require.NoError(t, err)
}
