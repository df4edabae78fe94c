package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// SQLiteFile is the database file name Open uses inside the cache
// directory.
const SQLiteFile = "code.db"

// Open returns the store for the named backend rooted at dir, with a
// function that releases it. The none backend returns a nil store.
func Open(backend, dir string, opts ...Option) (Store, func(), error) {
	switch backend {
	case BackendNone, "":
		return nil, func() {}, nil
	case BackendFile:
		store, err := NewFileStore(dir, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case BackendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating cache directory: %w", err)
		}
		store, err := OpenSQLite(filepath.Join(dir, SQLiteFile), opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", backend)
}
