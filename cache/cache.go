// Package cache stores compiled code trees so that unchanged sources are
// not recompiled. Entries are keyed by filename and a SHA-256 digest of the
// source text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/slither/bytecode"
)

// Store is a compiled code cache.
type Store interface {
	// Get returns the cached code for key. The bool is false on a miss.
	Get(ctx context.Context, key string) (*bytecode.Code, bool, error)
	// Put stores code under key, replacing any existing entry.
	Put(ctx context.Context, key string, code *bytecode.Code) error
}

// Key returns the cache key for a source file.
func Key(filename, source string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for cache events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Extension is the file extension of FileStore entries.
const Extension = ".slc"

// FileStore keeps one CBOR file per entry in a directory.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	o := buildOptions(opts)
	return &FileStore{dir: dir, logger: o.logger}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+Extension)
}

func (s *FileStore) Get(ctx context.Context, key string) (*bytecode.Code, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	code, err := bytecode.UnmarshalCBOR(data)
	if err != nil {
		// A corrupt or stale entry is a miss; it is overwritten on Put
		s.logger.Debug().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		return nil, false, nil
	}
	return code, true, nil
}

func (s *FileStore) Put(ctx context.Context, key string, code *bytecode.Code) error {
	data, err := bytecode.MarshalCBOR(code)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("cached code")
	return nil
}
