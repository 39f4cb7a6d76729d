package completed

import (
	"testing"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// now is Wednesday 2026-02-11, ISO week 2026-W07 (Feb 9-15).
var now = time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)

func pts(f float64) *float64 { return &f }

func ts(t time.Time) string { return t.Format(time.RFC3339) }

func TestFormatWeekLabel(t *testing.T) {
	for _, tc := range []struct {
		name      string
		monday    time.Time
		sunday    time.Time
		isCurrent bool
		want      string
	}{
		{"CurrentSameMonth", time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), true, "Current Week (Feb 3-9)"},
		{"LastSameMonth", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC), false, "Last Week (Feb 2-8)"},
		{"CrossMonth", time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), true, "Current Week (Jan 26 - Feb 1)"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatWeekLabel(tc.monday, tc.sunday, tc.isCurrent); got != tc.want {
				t.Errorf("FormatWeekLabel() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestItemsByWeek_OnlyFlowEndStatusesCount(t *testing.T) {
	twoDaysAgo := ts(now.AddDate(0, 0, -2))
	issues := []*model.Issue{
		{Key: "A-1", Status: "Done", Points: pts(3), Resolved: twoDaysAgo},
		{Key: "A-2", Status: "In Progress", Points: pts(5), Resolved: twoDaysAgo},
	}

	weeks := ItemsByWeek(issues, Options{Weeks: 2, Now: now})

	total := 0
	var points float64
	for _, w := range weeks {
		total += w.TotalIssues
		points += w.TotalPoints
	}
	if total != 1 {
		t.Errorf("total issues = %d, want 1", total)
	}
	if points != 3 {
		t.Errorf("total points = %v, want 3", points)
	}
}

func TestItemsByWeek_MissingResolutionExcluded(t *testing.T) {
	issues := []*model.Issue{
		{Key: "A-1", Status: "Done"},
		model.NormalizeIssue(map[string]any{"issue_key": "A-2", "status": "Closed", "resolved": ts(now)}),
		model.NormalizeIssue(map[string]any{"key": "A-3", "fields": map[string]any{
			"status":         map[string]any{"name": "Resolved"},
			"resolutiondate": "2026-02-10T09:00:00.000+0000",
		}}),
	}
	weeks := ItemsByWeek(issues, Options{Now: now})
	if got := weeks[0].TotalIssues; got != 2 {
		t.Errorf("current week issues = %d, want 2", got)
	}
}

func TestItemsByWeek_WeekCountInvariant(t *testing.T) {
	for _, n := range []int{1, 2, 4, 12} {
		weeks := ItemsByWeek(nil, Options{Weeks: n, Now: now})
		if len(weeks) != n {
			t.Errorf("Weeks=%d: got %d entries", n, len(weeks))
		}
		current := 0
		for _, w := range weeks {
			if w.IsCurrent {
				current++
			}
			if w.TotalIssues != 0 || w.Issues == nil || w.EpicGroups == nil {
				t.Errorf("Weeks=%d: expected empty-but-present week, got %+v", n, w)
			}
		}
		if current != 1 || !weeks[0].IsCurrent {
			t.Errorf("Weeks=%d: expected only the first entry current", n)
		}
	}
}

func TestItemsByWeek_ReverseChronological(t *testing.T) {
	weeks := ItemsByWeek(nil, Options{Weeks: 3, Now: now})
	want := []string{"2026-W07", "2026-W06", "2026-W05"}
	for i, w := range weeks {
		if w.WeekLabel != want[i] {
			t.Errorf("weeks[%d] = %s, want %s", i, w.WeekLabel, want[i])
		}
	}
	if weeks[0].DisplayLabel != "Current Week (Feb 9-15)" {
		t.Errorf("display label = %q", weeks[0].DisplayLabel)
	}
	if weeks[1].DisplayLabel != "Last Week (Feb 2-8)" {
		t.Errorf("display label = %q", weeks[1].DisplayLabel)
	}
}

func TestItemsByWeek_EpicGrouping(t *testing.T) {
	resolved := ts(now.AddDate(0, 0, -1))
	issues := []*model.Issue{
		{Key: "EPIC-1", Summary: "Payments", Status: "Done", Resolved: resolved},
		{Key: "T-1", Status: "Done", Points: pts(2), Resolved: resolved, Parent: &model.ParentRef{Key: "EPIC-1"}},
		{Key: "T-2", Status: "Done", Points: pts(1), Resolved: resolved, Parent: &model.ParentRef{Key: "EPIC-2", Summary: "Search"}},
		{Key: "T-3", Status: "Done", Resolved: resolved},
		{Key: "EPIC-2", Summary: "Search", Status: "In Progress"},
	}

	weeks := ItemsByWeek(issues, Options{Now: now, ParentField: "parent"})
	cur := weeks[0]

	if cur.TotalIssues != 3 {
		t.Errorf("TotalIssues = %d, want 3 (parent issue excluded)", cur.TotalIssues)
	}
	if cur.TotalEpicsLinked != 2 {
		t.Errorf("TotalEpicsLinked = %d, want 2", cur.TotalEpicsLinked)
	}
	if cur.TotalEpicsClosed != 1 || cur.ClosedEpicKeys[0] != "EPIC-1" {
		t.Errorf("closed epics = %v, want [EPIC-1]", cur.ClosedEpicKeys)
	}
	if cur.TotalPoints != 3 {
		t.Errorf("TotalPoints = %v, want 3", cur.TotalPoints)
	}
	if len(cur.EpicGroups) != 3 {
		t.Fatalf("EpicGroups = %+v, want 3 groups", cur.EpicGroups)
	}
	if g := cur.EpicGroups[0]; g.EpicKey != "EPIC-1" || g.EpicSummary != "Payments" || !g.EpicClosed || g.Points != 2 {
		t.Errorf("group 0 = %+v", g)
	}
	if g := cur.EpicGroups[1]; g.EpicKey != "EPIC-2" || g.EpicClosed {
		t.Errorf("group 1 = %+v", g)
	}
	if g := cur.EpicGroups[2]; g.EpicKey != model.NoParentKey || len(g.Issues) != 1 || g.Issues[0].Key != "T-3" {
		t.Errorf("group 2 = %+v", g)
	}
}

func TestItemsByWeek_NoParentFieldNoGrouping(t *testing.T) {
	resolved := ts(now)
	issues := []*model.Issue{
		{Key: "EPIC-1", Status: "Done", Resolved: resolved},
		{Key: "T-1", Status: "Done", Resolved: resolved, Parent: &model.ParentRef{Key: "EPIC-1"}},
	}
	cur := ItemsByWeek(issues, Options{Now: now})[0]
	if cur.TotalIssues != 2 || len(cur.EpicGroups) != 0 || cur.TotalEpicsLinked != 0 {
		t.Errorf("unexpected grouping without parent field: %+v", cur)
	}
}

func TestItemsByWeek_MalformedDateSkipped(t *testing.T) {
	issues := []*model.Issue{
		{Key: "A-1", Status: "Done", Resolved: "yesterday-ish"},
		{Key: "A-2", Status: "Done", Resolved: ts(now)},
	}
	cur := ItemsByWeek(issues, Options{Now: now})[0]
	if cur.TotalIssues != 1 || cur.Issues[0].Key != "A-2" {
		t.Errorf("expected only A-2, got %+v", cur.Issues)
	}
}

func TestEmptyWeeks(t *testing.T) {
	weeks := EmptyWeeks(3, now)
	if len(weeks) != 3 {
		t.Fatalf("len = %d", len(weeks))
	}
	current := 0
	for _, w := range weeks {
		if w.IsCurrent {
			current++
		}
	}
	if current != 1 {
		t.Errorf("current weeks = %d, want 1", current)
	}
	if weeks[0].Monday != "2026-02-09" || weeks[0].Sunday != "2026-02-15" {
		t.Errorf("current week span = %s..%s", weeks[0].Monday, weeks[0].Sunday)
	}
}
