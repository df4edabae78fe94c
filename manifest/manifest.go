// Package manifest loads slither.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project manifest.
const FileName = "slither.toml"

// Cache backends.
const (
	CacheNone   = "none"
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// Manifest represents a slither.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Cache   Cache   `toml:"cache"`
	Compile Compile `toml:"compile"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures module search paths and the entry point.
type Source struct {
	Paths []string `toml:"paths"`
	Entry string   `toml:"entry"`
}

// Cache configures the compiled code cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// Compile holds compiler settings.
type Compile struct {
	Optimize int `toml:"optimize"`
}

// Load parses slither.toml from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if len(m.Source.Paths) == 0 {
		m.Source.Paths = []string{"."}
	}
	if m.Cache.Backend == "" {
		m.Cache.Backend = CacheFile
	}
	if m.Cache.Dir == "" {
		m.Cache.Dir = ".slither/cache"
	}
	switch m.Cache.Backend {
	case CacheNone, CacheFile, CacheSQLite:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", m.Cache.Backend)
	}
	if m.Compile.Optimize < 0 || m.Compile.Optimize > 2 {
		return nil, fmt.Errorf("optimize level must be between 0 and 2, got %d", m.Compile.Optimize)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find slither.toml, then loads it.
// It returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// SourcePaths returns absolute paths for the configured source paths.
func (m *Manifest) SourcePaths() []string {
	paths := make([]string, 0, len(m.Source.Paths))
	for _, p := range m.Source.Paths {
		paths = append(paths, m.resolve(p))
	}
	return paths
}

// EntryPath returns the absolute path of the entry point, or "" if none is
// configured. The entry is relative to the first source path.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Source.Entry) {
		return m.Source.Entry
	}
	return filepath.Join(m.SourcePaths()[0], m.Source.Entry)
}

// CacheDir returns the absolute cache directory.
func (m *Manifest) CacheDir() string {
	return m.resolve(m.Cache.Dir)
}

// CacheBackend returns the configured backend, or CacheNone when the cache
// is disabled.
func (m *Manifest) CacheBackend() string {
	if !m.Cache.Enabled {
		return CacheNone
	}
	return m.Cache.Backend
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
