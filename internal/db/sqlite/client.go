// Package sqlite implements db.Store on an embedded SQLite database.
//
// Documents live in one table keyed by (container, id) with the JSON body
// in a TEXT column. Predicates are rendered against the body with
// json_extract and json_each; secondary indexes are expression indexes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/query"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config holds connection parameters for a SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Store implements db.Store on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at cfg.Path and applies the schema.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases alive.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxIdleTime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if cfg.Path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &Store{db: conn}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq           INTEGER PRIMARY KEY,
	container     TEXT NOT NULL,
	id            TEXT NOT NULL,
	kind          TEXT NOT NULL,
	partition_key TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL CHECK (json_valid(body)),
	UNIQUE (container, id)
);
CREATE INDEX IF NOT EXISTS documents_kind ON documents(container, kind);

CREATE TABLE IF NOT EXISTS index_definitions (
	name       TEXT PRIMARY KEY,
	definition TEXT NOT NULL
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return wrap(db.OpMigrate, err)
	}
	return nil
}

// Dialect returns the SQLite predicate dialect.
func (s *Store) Dialect() query.Dialect { return Dialect{} }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrap(db.OpPing, err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// wrap classifies err. Lock contention is transient and uniqueness
// violations surface as db.ErrKeyExists.
func wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch code := se.Code(); {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"):
			return &db.Error{Op: op, Err: db.ErrKeyExists}
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return &db.Error{Op: op, Err: err, Transient: true}
		}
	}
	return &db.Error{Op: op, Err: err}
}
