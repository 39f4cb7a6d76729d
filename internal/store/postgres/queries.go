package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryListIssues(ctx context.Context, db executor, profileID, queryID string) ([]*model.Issue, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM issues
		WHERE profile_id = $1 AND query_id = $2
		ORDER BY position`, profileID, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

// queryReplaceIssues must run inside a transaction; it deletes the previous
// set before inserting the new one in input order.
func queryReplaceIssues(ctx context.Context, db executor, profileID, queryID string, issues []*model.Issue) error {
	if _, err := db.ExecContext(ctx, `
		DELETE FROM issues WHERE profile_id = $1 AND query_id = $2`,
		profileID, queryID); err != nil {
		return fmt.Errorf("clear issues: %w", err)
	}
	for i, iss := range issues {
		payload, err := encodeIssue(iss)
		if err != nil {
			return fmt.Errorf("encode issue %s: %w", iss.Key, err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO issues (profile_id, query_id, issue_key, position, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (profile_id, query_id, issue_key)
			DO UPDATE SET position = $4, payload = $5, imported_at = NOW()`,
			profileID, queryID, iss.Key, i, payload); err != nil {
			return fmt.Errorf("insert issue %s: %w", iss.Key, err)
		}
	}
	return nil
}

func queryListProfiles(ctx context.Context, db executor) ([]model.ProfileQuery, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT profile_id, query_id, COUNT(*) AS issue_count
		FROM issues
		GROUP BY profile_id, query_id
		ORDER BY profile_id, query_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProfileQuery
	for rows.Next() {
		var pq model.ProfileQuery
		if err := rows.Scan(&pq.ProfileID, &pq.QueryID, &pq.IssueCount); err != nil {
			return nil, err
		}
		out = append(out, pq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func querySetAppState(ctx context.Context, db executor, s *model.AppState) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO app_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
		RETURNING created_at, updated_at`,
		s.Key, jsonbBytes(s.Value),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func queryGetAppState(ctx context.Context, db executor, key string) (*model.AppState, error) {
	row := db.QueryRowContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM app_state WHERE key = $1`, key)
	return scanAppState(row)
}

func queryListAppState(ctx context.Context, db executor, namespace string) ([]*model.AppState, error) {
	if namespace == "" {
		rows, err := db.QueryContext(ctx, `
			SELECT key, value, created_at, updated_at
			FROM app_state ORDER BY key`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanAppStates(rows)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM app_state WHERE key LIKE $1 || ':%'
		ORDER BY key`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppStates(rows)
}

func queryDeleteAppState(ctx context.Context, db executor, key string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM app_state WHERE key = $1`, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
