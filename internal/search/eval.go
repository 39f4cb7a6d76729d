package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/flowboard/internal/activework"
	"github.com/alfredjeanlab/flowboard/internal/model"
)

// issueFields maps query field names onto model.Issue field names.
var issueFields = map[string]string{
	"key":        "key",
	"issuetype":  "issue_type",
	"project":    "project_key",
	"fixversion": "fix_versions",
}

// FieldValue returns the value a predicate on field is matched against.
func FieldValue(iss *model.Issue, field string) any {
	if field == TextField {
		return TextOf(iss)
	}
	if name, ok := issueFields[field]; ok {
		field = name
	}
	v, _ := iss.Field(field)
	return v
}

// TextOf is the lower-cased haystack for free-text predicates.
func TextOf(iss *model.Issue) string {
	parts := []string{iss.Key, iss.Summary, iss.Assignee, iss.IssueType, iss.ProjectKey, iss.ProjectName}
	parts = append(parts, iss.Labels...)
	parts = append(parts, iss.Components...)
	parts = append(parts, iss.FixVersions...)
	return strings.ToLower(strings.Join(parts, " "))
}

// MatchesValue reports whether a field value contains filter, ignoring case.
// For lists any element may match. filter is expected lower-cased.
func MatchesValue(value any, filter string) bool {
	switch v := value.(type) {
	case nil:
		return false
	case []string:
		for _, s := range v {
			if contains(s, filter) {
				return true
			}
		}
		return false
	case []any:
		for _, el := range v {
			if MatchesValue(el, filter) {
				return true
			}
		}
		return false
	case model.ParentRef:
		return contains(v.Key, filter) || contains(v.Summary, filter)
	}
	return contains(scalarString(value), filter)
}

func contains(s, filter string) bool {
	return strings.Contains(strings.ToLower(s), filter)
}

// scalarString renders a scalar field value. Tag objects such as
// {"name": "Backend"} are unwrapped.
func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		for _, k := range []string{"name", "value", "displayName", "key"} {
			if s, ok := v[k].(string); ok {
				return s
			}
		}
	}
	return fmt.Sprint(value)
}

// Matches reports whether iss satisfies expr. A nil expr matches everything.
func Matches(expr Expr, iss *model.Issue) bool {
	if expr == nil {
		return true
	}
	return expr.Match(iss)
}

// FilterTimeline applies query to every epic's children. Epics left without
// children are dropped; the others get their issue counts and completion
// percentage recomputed from the children's health indicators. An empty or
// malformed query returns the timeline unchanged.
func FilterTimeline(timeline []model.EpicGroup, query string) []model.EpicGroup {
	expr := ParseSearchQuery(query)
	if expr == nil {
		return timeline
	}
	return FilterTimelineExpr(timeline, expr)
}

// FilterTimelineExpr is FilterTimeline for an already parsed expression.
func FilterTimelineExpr(timeline []model.EpicGroup, expr Expr) []model.EpicGroup {
	out := make([]model.EpicGroup, 0, len(timeline))
	for _, g := range timeline {
		var kept []*model.Issue
		completed := 0
		for _, iss := range g.ChildIssues {
			if !Matches(expr, iss) {
				continue
			}
			kept = append(kept, iss)
			if iss.Health != nil && iss.Health.IsCompleted {
				completed++
			}
		}
		if len(kept) == 0 {
			continue
		}
		g.ChildIssues = kept
		g.TotalIssues = len(kept)
		g.CompletedIssues = completed
		g.CompletionPct = activework.CountCompletionPct(completed, len(kept))
		out = append(out, g)
	}
	return out
}
