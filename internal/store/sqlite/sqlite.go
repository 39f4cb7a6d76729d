// Package sqlite implements the store.Store interface on a local SQLite file.
//
// It is meant for single-user setups and the CLI; timestamps are stored as
// RFC 3339 text.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS issues (
	profile_id TEXT NOT NULL,
	query_id TEXT NOT NULL,
	issue_key TEXT NOT NULL,
	position INTEGER NOT NULL,
	payload TEXT NOT NULL,
	imported_at TEXT NOT NULL,
	PRIMARY KEY (profile_id, query_id, issue_key)
);

CREATE TABLE IF NOT EXISTS app_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_position ON issues(profile_id, query_id, position);
`

// SQLiteStore implements store.Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// DefaultPath returns the default database path (~/.flowboard/flowboard.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".flowboard", "flowboard.db"), nil
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serialises writers and keeps transactions simple.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the schema if it does not exist.
func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListIssues(ctx context.Context, profileID, queryID string) ([]*model.Issue, error) {
	return listIssues(ctx, s.db, profileID, queryID)
}

// ReplaceIssues swaps the stored issue set of a profile query atomically.
func (s *SQLiteStore) ReplaceIssues(ctx context.Context, profileID, queryID string, issues []*model.Issue) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.ReplaceIssues(ctx, profileID, queryID, issues)
	})
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]model.ProfileQuery, error) {
	return listProfiles(ctx, s.db)
}

func (s *SQLiteStore) GetAppState(ctx context.Context, key string) (*model.AppState, error) {
	return getAppState(ctx, s.db, key)
}

func (s *SQLiteStore) SetAppState(ctx context.Context, state *model.AppState) error {
	return setAppState(ctx, s.db, state, time.Now().UTC())
}

func (s *SQLiteStore) ListAppState(ctx context.Context, namespace string) ([]*model.AppState, error) {
	return listAppState(ctx, s.db, namespace)
}

func (s *SQLiteStore) DeleteAppState(ctx context.Context, key string) error {
	return deleteAppState(ctx, s.db, key)
}

// RunInTransaction calls fn with a store bound to a new transaction,
// committing on success and rolling back on error.
func (s *SQLiteStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sqlx.Tx.
type txStore struct {
	tx *sqlx.Tx
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) ListIssues(ctx context.Context, profileID, queryID string) ([]*model.Issue, error) {
	return listIssues(ctx, s.tx, profileID, queryID)
}

func (s *txStore) ReplaceIssues(ctx context.Context, profileID, queryID string, issues []*model.Issue) error {
	return replaceIssues(ctx, s.tx, profileID, queryID, issues, time.Now().UTC())
}

func (s *txStore) ListProfiles(ctx context.Context) ([]model.ProfileQuery, error) {
	return listProfiles(ctx, s.tx)
}

func (s *txStore) GetAppState(ctx context.Context, key string) (*model.AppState, error) {
	return getAppState(ctx, s.tx, key)
}

func (s *txStore) SetAppState(ctx context.Context, state *model.AppState) error {
	return setAppState(ctx, s.tx, state, time.Now().UTC())
}

func (s *txStore) ListAppState(ctx context.Context, namespace string) ([]*model.AppState, error) {
	return listAppState(ctx, s.tx, namespace)
}

func (s *txStore) DeleteAppState(ctx context.Context, key string) error {
	return deleteAppState(ctx, s.tx, key)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
