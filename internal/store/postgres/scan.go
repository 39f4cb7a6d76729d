package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanIssue decodes a single payload column into a model.Issue.
func scanIssue(row scannable) (*model.Issue, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}
	var iss model.Issue
	if err := json.Unmarshal(payload, &iss); err != nil {
		return nil, err
	}
	return &iss, nil
}

// scanIssues scans multiple payload rows, preserving row order.
func scanIssues(rows *sql.Rows) ([]*model.Issue, error) {
	var issues []*model.Issue
	for rows.Next() {
		iss, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, iss)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return issues, nil
}

// encodeIssue marshals an issue for the payload column. Health indicators
// are derived at read time and are not stored.
func encodeIssue(iss *model.Issue) ([]byte, error) {
	cp := *iss
	cp.Health = nil
	return json.Marshal(&cp)
}

// scanAppState scans a single row into a model.AppState.
func scanAppState(row scannable) (*model.AppState, error) {
	var s model.AppState
	var value []byte
	err := row.Scan(&s.Key, &value, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Value = json.RawMessage(value)
	return &s, nil
}

// scanAppStates scans multiple rows into a slice of model.AppState pointers.
func scanAppStates(rows *sql.Rows) ([]*model.AppState, error) {
	var states []*model.AppState
	for rows.Next() {
		s, err := scanAppState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return states, nil
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
