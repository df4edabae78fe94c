package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newApp().rootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.py", "def double(x):\n    return x * 2\n")
	main := writeFile(t, dir, "main.py", "from helper import double\nprint(double(21))\n")

	stdout, _, err := execute(t, "run", main)
	require.NoError(t, err)
	require.Equal(t, "42\n", stdout)
}

func TestRunCode(t *testing.T) {
	stdout, _, err := execute(t, "run", "-c", "print('hello', 1 + 1)")
	require.NoError(t, err)
	require.Equal(t, "hello 2\n", stdout)
}

func TestRunMultipleSources(t *testing.T) {
	_, _, err := execute(t, "run", "-c", "x = 1", "file.py")
	require.EqualError(t, err, "multiple input sources specified")
}

func TestRunException(t *testing.T) {
	main := writeFile(t, t.TempDir(), "main.py", "def f():\n    raise ValueError('boom')\nf()\n")
	stdout, stderr, err := execute(t, "run", main)
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	require.Equal(t, 1, exit.code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "Traceback (most recent call last):")
	require.Contains(t, stderr, "line 2, in f")
	require.Contains(t, stderr, "ValueError: boom")
}

func TestRunSyntaxError(t *testing.T) {
	main := writeFile(t, t.TempDir(), "bad.py", "x = (1,\n")
	_, stderr, err := execute(t, "run", main)
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	require.Contains(t, stderr, "bad.py")
}

func TestRunManifestEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "slither.toml", `
[project]
name = "app"

[source]
paths = ["src"]
entry = "app.py"

[cache]
enabled = true
backend = "sqlite"
dir = "cache"
`)
	writeFile(t, dir, "src/util.py", "NAME = 'util'\n")
	writeFile(t, dir, "src/app.py", "import util\nprint(util.NAME)\n")
	chdir(t, dir)

	stdout, _, err := execute(t, "run")
	require.NoError(t, err)
	require.Equal(t, "util\n", stdout)
	require.FileExists(t, filepath.Join(dir, "cache", "code.db"))
}

func TestRunFileCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.py", "VALUE = 7\n")
	main := writeFile(t, dir, "main.py", "import lib\nprint(lib.VALUE)\n")
	cacheDir := filepath.Join(t.TempDir(), "cache")

	for i := 0; i < 2; i++ {
		stdout, _, err := execute(t, "--cache", "file", "--cache-dir", cacheDir, "run", main)
		require.NoError(t, err)
		require.Equal(t, "7\n", stdout)
	}
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRunNoInput(t *testing.T) {
	chdir(t, t.TempDir())
	_, _, err := execute(t, "run")
	require.EqualError(t, err, "no file given and no manifest entry point found")
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2", "3\n"},
		{"'a' * 3", "'aaa'\n"},
		{"[i for i in range(3)]", "[0, 1, 2]\n"},
		{"None", "None\n"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			stdout, _, err := execute(t, "eval", tt.expr)
			require.NoError(t, err)
			require.Equal(t, tt.want, stdout)
		})
	}
}

func TestEvalJSON(t *testing.T) {
	stdout, _, err := execute(t, "eval", "--json", "{'a': [1, 2]}")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Equal(t, "dict", decoded["type"])
	require.Equal(t, map[string]any{"a": []any{1.0, 2.0}}, decoded["value"])
}

func TestEvalError(t *testing.T) {
	_, stderr, err := execute(t, "eval", "1 / 0")
	require.Error(t, err)
	require.Contains(t, stderr, "ZeroDivisionError")
}

func TestDis(t *testing.T) {
	main := writeFile(t, t.TempDir(), "main.py", "def f(a):\n    return a + 1\n")
	stdout, _, err := execute(t, "dis", main)
	require.NoError(t, err)
	require.Contains(t, stdout, "Disassembly of <module>:")
	require.Contains(t, stdout, "Disassembly of f:")
	require.Contains(t, stdout, "BINARY_ADD")

	stdout, _, err = execute(t, "dis", "--func", "f", main)
	require.NoError(t, err)
	require.NotContains(t, stdout, "<module>")

	_, _, err = execute(t, "dis", "--func", "g", main)
	require.EqualError(t, err, `function "g" not found`)
}

func TestDisJSON(t *testing.T) {
	stdout, _, err := execute(t, "dis", "--json", "-c", "x = 1")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Equal(t, "<module>", decoded["qualname"])
	require.NotEmpty(t, decoded["instructions"])
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.py", "x = 1\n")
	bad := writeFile(t, dir, "bad.py", "return 5\n")

	stdout, _, err := execute(t, "check", good)
	require.NoError(t, err)
	require.Equal(t, "1 file ok\n", stdout)

	_, stderr, err := execute(t, "check", good, bad)
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	require.Contains(t, stderr, "'return' outside function")
	require.Contains(t, stderr, "1 of 2 files failed")
}

func TestTokens(t *testing.T) {
	stdout, _, err := execute(t, "tokens", "-c", "x = 1\n")
	require.NoError(t, err)
	require.Contains(t, stdout, "| POSITION | TYPE")
	require.Contains(t, stdout, `| NAME    | "x"`)
	require.Contains(t, stdout, "NEWLINE")
}

func TestAST(t *testing.T) {
	stdout, _, err := execute(t, "ast", "-c", "x = 1 + 2\n")
	require.NoError(t, err)
	require.Equal(t, "x = (1 + 2)\n", stdout)

	stdout, _, err = execute(t, "ast", "--json", "-c", "x = 1\n")
	require.NoError(t, err)
	var decoded astNode
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	require.Equal(t, "Module", decoded.Type)
	require.Len(t, decoded.Children, 1)
	require.Equal(t, "Assign", decoded.Children[0].Type)
}
