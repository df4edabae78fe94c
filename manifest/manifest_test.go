package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(text), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"

[source]
paths = ["src", "lib"]
entry = "main.py"

[cache]
enabled = true
backend = "sqlite"
dir = "build/cache"

[compile]
optimize = 1
`)
	m, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Project.Name)
	require.Equal(t, "0.1.0", m.Project.Version)
	require.Equal(t, []string{filepath.Join(m.Dir, "src"), filepath.Join(m.Dir, "lib")}, m.SourcePaths())
	require.Equal(t, filepath.Join(m.Dir, "src", "main.py"), m.EntryPath())
	require.Equal(t, CacheSQLite, m.CacheBackend())
	require.Equal(t, filepath.Join(m.Dir, "build", "cache"), m.CacheDir())
	require.Equal(t, 1, m.Compile.Optimize)
}

func TestDefaults(t *testing.T) {
	m, err := Parse([]byte("[project]\nname = \"x\"\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"."}, m.Source.Paths)
	require.Equal(t, CacheFile, m.Cache.Backend)
	require.Equal(t, CacheNone, m.CacheBackend())
	require.Equal(t, "", m.EntryPath())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"syntax", "[project\n", ""},
		{"unknown key", "[project]\nauthor = \"me\"\n", `unknown key "project.author"`},
		{"backend", "[cache]\nbackend = \"redis\"\n", `unknown cache backend "redis"`},
		{"optimize", "[compile]\noptimize = 5\n", "optimize level must be between 0 and 2, got 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.text))
			require.Error(t, err)
			if tt.want != "" {
				require.Equal(t, tt.want, err.Error())
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"walk\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	m, err := FindAndLoad(nested)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "walk", m.Project.Name)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	require.Equal(t, abs, m.Dir)
}

func TestFindAndLoadMissing(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, m)
}
