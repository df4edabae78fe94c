package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/deepnoodle-ai/slither/bytecode"
)

// SQLiteStore keeps entries in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS code_cache (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}
	o := buildOptions(opts)
	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*bytecode.Code, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM code_cache WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache entry: %w", err)
	}
	code, err := bytecode.UnmarshalCBOR(data)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		return nil, false, nil
	}
	return code, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, code *bytecode.Code) error {
	data, err := bytecode.MarshalCBOR(code)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("generating entry id: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO code_cache (key, id, data, created_at) VALUES (?, ?, ?, ?)",
		key, id.String(), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	s.logger.Debug().Str("key", key).Str("id", id.String()).Msg("cached code")
	return nil
}

// Len returns the number of entries.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM code_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}
