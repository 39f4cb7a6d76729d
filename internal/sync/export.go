package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/idgen"
	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/store"
)

const snapshotVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	SnapshotID   string    `json:"snapshot_id"`
	Timestamp    time.Time `json:"timestamp"`
	ProfileCount int       `json:"profile_count"`
	IssueCount   int       `json:"issue_count"`
	StateCount   int       `json:"state_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// issueRecord is the payload of an "issue" record.
type issueRecord struct {
	ProfileID string       `json:"profile_id"`
	QueryID   string       `json:"query_id"`
	Issue     *model.Issue `json:"issue"`
}

// Summary describes a written snapshot.
type Summary struct {
	SnapshotID string
	Profiles   int
	Issues     int
	States     int
}

// ExportJSONL writes every stored issue set and app-state entry as JSONL to w.
// Profiles are written in (profile, query) order; issues keep their stored
// order within a profile. Health indicators are derived data and are not
// written.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer, now time.Time) (*Summary, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].ProfileID != profiles[j].ProfileID {
			return profiles[i].ProfileID < profiles[j].ProfileID
		}
		return profiles[i].QueryID < profiles[j].QueryID
	})

	var issues []issueRecord
	for _, p := range profiles {
		list, err := s.ListIssues(ctx, p.ProfileID, p.QueryID)
		if err != nil {
			return nil, fmt.Errorf("list issues for %s/%s: %w", p.ProfileID, p.QueryID, err)
		}
		for _, iss := range list {
			cp := *iss
			cp.Health = nil
			issues = append(issues, issueRecord{ProfileID: p.ProfileID, QueryID: p.QueryID, Issue: &cp})
		}
	}

	states, err := s.ListAppState(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list app state: %w", err)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Key < states[j].Key
	})

	snapshotID, err := idgen.SnapshotID()
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		SnapshotID: snapshotID,
		Profiles:   len(profiles),
		Issues:     len(issues),
		States:     len(states),
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      snapshotVersion,
		Type:         "header",
		SnapshotID:   sum.SnapshotID,
		Timestamp:    now.UTC(),
		ProfileCount: sum.Profiles,
		IssueCount:   sum.Issues,
		StateCount:   sum.States,
	}); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	for _, p := range profiles {
		if err := enc.Encode(record{Type: "profile", Data: p}); err != nil {
			return nil, fmt.Errorf("encode profile %s/%s: %w", p.ProfileID, p.QueryID, err)
		}
	}

	for _, rec := range issues {
		if err := enc.Encode(record{Type: "issue", Data: rec}); err != nil {
			return nil, fmt.Errorf("encode issue %s: %w", rec.Issue.Key, err)
		}
	}

	for _, st := range states {
		if err := enc.Encode(record{Type: "state", Data: st}); err != nil {
			return nil, fmt.Errorf("encode state %s: %w", st.Key, err)
		}
	}

	return sum, nil
}
