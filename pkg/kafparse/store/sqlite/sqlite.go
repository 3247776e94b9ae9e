package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
)

// sqliteStore implements store.Cache using SQLite
type sqliteStore struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

// OpenSQLite opens (or creates) a parse cache with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	// One connection keeps the pragmas below in effect for every query;
	// parse workers serialize on it.
	db.SetMaxOpenConns(1)

	// Enable WAL mode so concurrent runs can share the cache
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS parses (
	key TEXT PRIMARY KEY,
	tree TEXT NOT NULL,
	run_id TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parses_run ON parses(run_id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) Get(ctx context.Context, key store.Key) (store.Entry, bool, error) {
	var (
		e       = store.Entry{Key: key}
		runID   sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tree, run_id, created_at FROM parses WHERE key = ?`, string(key),
	).Scan(&e.Tree, &runID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return store.Entry{}, false, nil
	}
	if err != nil {
		return store.Entry{}, false, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	s.hits.Add(1)
	e.RunID = runID.String
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = t
	}
	return e, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, e store.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO parses (key, tree, run_id, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET tree = excluded.tree, run_id = excluded.run_id, created_at = excluded.created_at
`, string(e.Key), e.Tree, nullable(e.RunID), e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *sqliteStore) Stats(ctx context.Context) (store.Stats, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parses`).Scan(&n); err != nil {
		return store.Stats{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	return store.Stats{Entries: n, Hits: s.hits.Load(), Misses: s.misses.Load()}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
