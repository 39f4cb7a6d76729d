// Package activework classifies in-flight issues and rolls them up into an
// epic timeline.
package activework

import (
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/parent"
	"github.com/alfredjeanlab/flowboard/internal/week"
)

// Health thresholds, in whole days.
const (
	BlockedAfterDays = 5
	AgingAfterDays   = 14
)

// Options configures the active-work aggregation.
type Options struct {
	ParentField     string
	FlowEndStatuses []string
	FlowWIPStatuses []string
	Now             time.Time
}

// WithDefaults fills empty status lists and a zero Now.
func (o Options) WithDefaults() Options {
	if len(o.FlowEndStatuses) == 0 {
		o.FlowEndStatuses = model.DefaultFlowEndStatuses
	}
	if len(o.FlowWIPStatuses) == 0 {
		o.FlowWIPStatuses = model.DefaultFlowWIPStatuses
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	return o
}

// ActiveIssues partitions the retained issues by week of last update.
type ActiveIssues struct {
	LastWeek []*model.Issue `json:"last_week"`
	ThisWeek []*model.Issue `json:"this_week"`
}

// Data is the full active-work view handed to the presentation layer.
type Data struct {
	Timeline       []model.EpicGroup `json:"timeline"`
	LastWeekIssues []*model.Issue    `json:"last_week_issues"`
	ThisWeekIssues []*model.Issue    `json:"this_week_issues"`
}

// FilterActiveIssues keeps issues touched this week or last week plus stale
// work that is not completed. Each retained issue lands in exactly one list;
// issues without a parseable "updated" timestamp are dropped.
func FilterActiveIssues(issues []*model.Issue, opts Options) ActiveIssues {
	opts = opts.WithDefaults()

	thisWeekStart := week.StartOfWeek(opts.Now)
	lastWeekStart := thisWeekStart.AddDate(0, 0, -7)
	twoWeeksAgo := thisWeekStart.AddDate(0, 0, -14)

	out := ActiveIssues{LastWeek: []*model.Issue{}, ThisWeek: []*model.Issue{}}
	dropped := 0
	for _, iss := range issues {
		updated, ok := week.ParseTimestamp(iss.Updated)
		if !ok {
			dropped++
			continue
		}
		completed := slices.Contains(opts.FlowEndStatuses, iss.Status)

		switch {
		case completed && updated.Before(twoWeeksAgo):
			continue
		case !updated.Before(thisWeekStart):
			out.ThisWeek = append(out.ThisWeek, iss)
		case !updated.Before(lastWeekStart):
			out.LastWeek = append(out.LastWeek, iss)
		case !completed:
			out.ThisWeek = append(out.ThisWeek, iss)
		}
	}
	if dropped > 0 {
		slog.Warn("dropped issues without a parseable updated timestamp", "count", dropped)
	}
	return out
}

// AddHealthIndicators returns a copy of the issue with freshly derived health
// indicators. Blocked and aging are only evaluated for work that is not
// completed, and stay false when the timestamp cannot be parsed.
func AddHealthIndicators(iss *model.Issue, flowEndStatuses []string, now time.Time) *model.Issue {
	if len(flowEndStatuses) == 0 {
		flowEndStatuses = model.DefaultFlowEndStatuses
	}
	h := model.HealthIndicators{IsCompleted: slices.Contains(flowEndStatuses, iss.Status)}
	if !h.IsCompleted {
		if updated, ok := week.ParseTimestamp(iss.Updated); ok {
			h.IsBlocked = week.DaysSince(updated, now) >= BlockedAfterDays
		}
		if created, ok := week.ParseTimestamp(iss.Created); ok {
			h.IsAging = week.DaysSince(created, now) >= AgingAfterDays
		}
	}
	return iss.WithHealth(h)
}

// CalculateEpicProgress rolls child issues up into progress counters.
// EpicKey, EpicSummary and ChildIssues are left for the caller to set.
func CalculateEpicProgress(children []*model.Issue, flowEndStatuses, flowWIPStatuses []string) model.EpicGroup {
	g := model.EpicGroup{ByStatus: make(map[string]model.StatusStat)}
	for _, iss := range children {
		p := iss.PointsOrZero()
		g.TotalIssues++
		g.TotalPoints += p

		switch {
		case slices.Contains(flowEndStatuses, iss.Status):
			g.CompletedIssues++
			g.CompletedPoints += p
		case slices.Contains(flowWIPStatuses, iss.Status):
			g.InProgressIssues++
		default:
			g.TodoIssues++
		}

		st := g.ByStatus[iss.Status]
		st.Count++
		st.Points += p
		g.ByStatus[iss.Status] = st
	}
	g.CompletionPct = completionPct(g.CompletedPoints, g.TotalPoints, g.CompletedIssues, g.TotalIssues)
	return g
}

// completionPct prefers points; with no points it falls back to issue counts.
func completionPct(donePoints, totalPoints float64, doneIssues, totalIssues int) float64 {
	switch {
	case totalPoints > 0:
		return round1(100 * donePoints / totalPoints)
	case doneIssues > 0 && totalIssues > 0:
		return round1(100 * float64(doneIssues) / float64(totalIssues))
	}
	return 0
}

// CountCompletionPct is the issue-count completion percentage rounded to one decimal.
func CountCompletionPct(doneIssues, totalIssues int) float64 {
	return completionPct(0, 0, doneIssues, totalIssues)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// BuildTimeline groups the given issues under their parents and returns one
// EpicGroup per parent key, sorted by completion percentage descending. Equal
// percentages keep first-seen order. Issues that are themselves a parent are
// not listed as children; orphans go to the "No Parent" group. idx supplies
// summaries for bare parent keys.
func BuildTimeline(issues []*model.Issue, idx parent.Index, opts Options) []model.EpicGroup {
	opts = opts.WithDefaults()

	children := parent.FilterParentIssues(issues, opts.ParentField)

	var order []string
	byKey := make(map[string][]*model.Issue)
	summaries := make(map[string]string)
	for _, iss := range children {
		key, summary := model.NoParentKey, model.NoParentKey
		if ref, ok := parent.ResolveParent(iss, opts.ParentField, idx); ok {
			key, summary = ref.Key, ref.Summary
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
			summaries[key] = summary
		}
		byKey[key] = append(byKey[key], iss)
	}

	timeline := make([]model.EpicGroup, 0, len(order))
	for _, key := range order {
		g := CalculateEpicProgress(byKey[key], opts.FlowEndStatuses, opts.FlowWIPStatuses)
		g.EpicKey = key
		g.EpicSummary = summaries[key]
		g.ChildIssues = byKey[key]
		timeline = append(timeline, g)
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].CompletionPct > timeline[j].CompletionPct
	})
	return timeline
}

// ActiveWorkData filters the active issues, attaches health indicators and
// builds the epic timeline over them.
func ActiveWorkData(issues []*model.Issue, opts Options) Data {
	opts = opts.WithDefaults()

	active := FilterActiveIssues(issues, opts)
	withHealth := func(list []*model.Issue) []*model.Issue {
		out := make([]*model.Issue, 0, len(list))
		for _, iss := range list {
			out = append(out, AddHealthIndicators(iss, opts.FlowEndStatuses, opts.Now))
		}
		return out
	}
	data := Data{
		LastWeekIssues: withHealth(active.LastWeek),
		ThisWeekIssues: withHealth(active.ThisWeek),
	}

	// Parents are detected over the full issue set so an epic that was not
	// touched recently is still recognised as a container.
	parents := parent.ExtractParentKeys(issues, opts.ParentField)
	children := make([]*model.Issue, 0, len(data.ThisWeekIssues)+len(data.LastWeekIssues))
	for _, list := range [][]*model.Issue{data.ThisWeekIssues, data.LastWeekIssues} {
		for _, iss := range list {
			if _, isParent := parents[iss.Key]; isParent {
				continue
			}
			children = append(children, iss)
		}
	}

	data.Timeline = BuildTimeline(children, parent.NewIndex(issues), opts)
	slog.Debug("active work aggregated",
		"input", len(issues),
		"this_week", len(data.ThisWeekIssues),
		"last_week", len(data.LastWeekIssues),
		"epics", len(data.Timeline),
	)
	return data
}
