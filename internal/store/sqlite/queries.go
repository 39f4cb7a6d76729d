package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

const timeLayout = time.RFC3339Nano

type appStateRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r appStateRow) toModel() (*model.AppState, error) {
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", r.Key, err)
	}
	updated, err := time.Parse(timeLayout, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at of %s: %w", r.Key, err)
	}
	return &model.AppState{
		Key:       r.Key,
		Value:     json.RawMessage(r.Value),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func listIssues(ctx context.Context, db sqlx.QueryerContext, profileID, queryID string) ([]*model.Issue, error) {
	var payloads []string
	err := sqlx.SelectContext(ctx, db, &payloads, `
		SELECT payload FROM issues
		WHERE profile_id = ? AND query_id = ?
		ORDER BY position`, profileID, queryID)
	if err != nil {
		return nil, err
	}
	issues := make([]*model.Issue, 0, len(payloads))
	for _, p := range payloads {
		var iss model.Issue
		if err := json.Unmarshal([]byte(p), &iss); err != nil {
			return nil, fmt.Errorf("decode issue payload: %w", err)
		}
		issues = append(issues, &iss)
	}
	return issues, nil
}

func replaceIssues(ctx context.Context, db sqlx.ExecerContext, profileID, queryID string, issues []*model.Issue, now time.Time) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM issues WHERE profile_id = ? AND query_id = ?`, profileID, queryID); err != nil {
		return fmt.Errorf("clear issues: %w", err)
	}
	importedAt := now.Format(timeLayout)
	for i, iss := range issues {
		cp := *iss
		cp.Health = nil
		payload, err := json.Marshal(&cp)
		if err != nil {
			return fmt.Errorf("encode issue %s: %w", iss.Key, err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO issues (profile_id, query_id, issue_key, position, payload, imported_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (profile_id, query_id, issue_key)
			DO UPDATE SET position = excluded.position, payload = excluded.payload, imported_at = excluded.imported_at`,
			profileID, queryID, iss.Key, i, string(payload), importedAt); err != nil {
			return fmt.Errorf("insert issue %s: %w", iss.Key, err)
		}
	}
	return nil
}

func listProfiles(ctx context.Context, db sqlx.QueryerContext) ([]model.ProfileQuery, error) {
	var out []model.ProfileQuery
	err := sqlx.SelectContext(ctx, db, &out, `
		SELECT profile_id, query_id, COUNT(*) AS issue_count
		FROM issues
		GROUP BY profile_id, query_id
		ORDER BY profile_id, query_id`)
	return out, err
}

func getAppState(ctx context.Context, db sqlx.QueryerContext, key string) (*model.AppState, error) {
	var row appStateRow
	if err := sqlx.GetContext(ctx, db, &row, `
		SELECT key, value, created_at, updated_at
		FROM app_state WHERE key = ?`, key); err != nil {
		return nil, err
	}
	return row.toModel()
}

func setAppState(ctx context.Context, db sqlx.ExtContext, s *model.AppState, now time.Time) error {
	ts := now.Format(timeLayout)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.Key, string(s.Value), ts, ts); err != nil {
		return err
	}
	stored, err := getAppState(ctx, db, s.Key)
	if err != nil {
		return err
	}
	s.CreatedAt, s.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

func listAppState(ctx context.Context, db sqlx.QueryerContext, namespace string) ([]*model.AppState, error) {
	var rows []appStateRow
	var err error
	if namespace == "" {
		err = sqlx.SelectContext(ctx, db, &rows, `
			SELECT key, value, created_at, updated_at
			FROM app_state ORDER BY key`)
	} else {
		err = sqlx.SelectContext(ctx, db, &rows, `
			SELECT key, value, created_at, updated_at
			FROM app_state WHERE key LIKE ? || ':%'
			ORDER BY key`, namespace)
	}
	if err != nil {
		return nil, err
	}
	out := make([]*model.AppState, 0, len(rows))
	for _, r := range rows {
		s, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func deleteAppState(ctx context.Context, db sqlx.ExecerContext, key string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, key)
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
