// Package completed summarises the items finished in each of the last N weeks.
package completed

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/parent"
	"github.com/alfredjeanlab/flowboard/internal/week"
)

// DefaultWeeks is the number of weeks reported when Options.Weeks is unset.
const DefaultWeeks = 2

const dateLayout = "2006-01-02"

// Options configures ItemsByWeek.
type Options struct {
	Weeks           int
	FlowEndStatuses []string
	ParentField     string
	Now             time.Time
}

func (o Options) withDefaults() Options {
	if o.Weeks <= 0 {
		o.Weeks = DefaultWeeks
	}
	if len(o.FlowEndStatuses) == 0 {
		o.FlowEndStatuses = model.DefaultFlowEndStatuses
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	return o
}

// ItemsByWeek returns one summary per week, current week first, always
// exactly opts.Weeks entries. Only issues in a flow end status that carry a
// resolution date are counted.
func ItemsByWeek(issues []*model.Issue, opts Options) []model.CompletedWeek {
	opts = opts.withDefaults()

	var done []*model.Issue
	for _, iss := range issues {
		if !slices.Contains(opts.FlowEndStatuses, iss.Status) || iss.Resolved == "" {
			continue
		}
		done = append(done, iss)
	}

	buckets := week.BucketIssues(done, model.FieldResolved, opts.Weeks, opts.Now)
	idx := parent.NewIndex(issues)

	weeks := week.LastNWeeks(opts.Now, opts.Weeks)
	out := make([]model.CompletedWeek, 0, len(weeks))
	for i := len(weeks) - 1; i >= 0; i-- {
		out = append(out, summarise(weeks[i], buckets[weeks[i].Label], opts.ParentField, idx))
	}

	slog.Debug("completed items aggregated", "input", len(issues), "completed", len(done), "weeks", opts.Weeks)
	return out
}

// EmptyWeeks returns the zero-count structure for the last n weeks, current
// week first.
func EmptyWeeks(n int, now time.Time) []model.CompletedWeek {
	weeks := week.LastNWeeks(now, n)
	out := make([]model.CompletedWeek, 0, len(weeks))
	for i := len(weeks) - 1; i >= 0; i-- {
		out = append(out, emptyWeek(weeks[i]))
	}
	return out
}

func emptyWeek(b model.WeekBucket) model.CompletedWeek {
	return model.CompletedWeek{
		WeekLabel:      b.Label,
		DisplayLabel:   FormatWeekLabel(b.Monday, b.Sunday, b.IsCurrent),
		Monday:         b.Monday.Format(dateLayout),
		Sunday:         b.Sunday.Format(dateLayout),
		IsCurrent:      b.IsCurrent,
		Issues:         []*model.Issue{},
		EpicGroups:     []model.WeekEpicGroup{},
		ClosedEpicKeys: []string{},
	}
}

func summarise(b model.WeekBucket, issues []*model.Issue, parentField string, idx parent.Index) model.CompletedWeek {
	wk := emptyWeek(b)
	display := issues

	if parentField != "" {
		parentKeys := parent.ExtractParentKeys(issues, parentField)
		completedKeys := make(map[string]struct{}, len(issues))
		for _, iss := range issues {
			completedKeys[iss.Key] = struct{}{}
		}
		for k := range parentKeys {
			if _, ok := completedKeys[k]; ok {
				wk.ClosedEpicKeys = append(wk.ClosedEpicKeys, k)
			}
		}
		sort.Strings(wk.ClosedEpicKeys)

		display = parent.FilterParentIssues(issues, parentField)
		wk.EpicGroups = groupByEpic(display, parentField, idx, completedKeys)
		wk.TotalEpicsLinked = len(parentKeys)
		wk.TotalEpicsClosed = len(wk.ClosedEpicKeys)
	}

	if display != nil {
		wk.Issues = display
	}
	wk.TotalIssues = len(display)
	for _, iss := range display {
		wk.TotalPoints += iss.PointsOrZero()
	}
	return wk
}

// groupByEpic groups child issues by resolved parent in first-seen order;
// orphans are collected in a trailing "No Parent" group.
func groupByEpic(issues []*model.Issue, parentField string, idx parent.Index, closed map[string]struct{}) []model.WeekEpicGroup {
	groups := []model.WeekEpicGroup{}
	pos := make(map[string]int)
	var orphans *model.WeekEpicGroup

	for _, iss := range issues {
		ref, ok := parent.ResolveParent(iss, parentField, idx)
		if !ok {
			if orphans == nil {
				orphans = &model.WeekEpicGroup{EpicKey: model.NoParentKey, EpicSummary: model.NoParentKey}
			}
			orphans.Issues = append(orphans.Issues, iss)
			orphans.Points += iss.PointsOrZero()
			continue
		}
		i, seen := pos[ref.Key]
		if !seen {
			_, isClosed := closed[ref.Key]
			groups = append(groups, model.WeekEpicGroup{EpicKey: ref.Key, EpicSummary: ref.Summary, EpicClosed: isClosed})
			i = len(groups) - 1
			pos[ref.Key] = i
		}
		groups[i].Issues = append(groups[i].Issues, iss)
		groups[i].Points += iss.PointsOrZero()
	}
	if orphans != nil {
		groups = append(groups, *orphans)
	}
	return groups
}

// FormatWeekLabel renders the display label of a week, e.g.
// "Current Week (Feb 3-9)" or "Last Week (Jan 27 - Feb 2)".
func FormatWeekLabel(monday, sunday time.Time, isCurrent bool) string {
	prefix := "Last Week"
	if isCurrent {
		prefix = "Current Week"
	}
	var span string
	if monday.Month() == sunday.Month() {
		span = fmt.Sprintf("%s %d-%d", monday.Format("Jan"), monday.Day(), sunday.Day())
	} else {
		span = fmt.Sprintf("%s - %s", monday.Format("Jan 2"), sunday.Format("Jan 2"))
	}
	return prefix + " (" + span + ")"
}
