package model

import (
	"encoding/json"
	"strings"
)

// NoParentKey is the epic key used for issues that have no resolvable parent.
const NoParentKey = "No Parent"

// CustomFieldPrefix marks JIRA custom field ids (e.g. "customfield_10014").
const CustomFieldPrefix = "customfield_"

// DateField names one of the timestamp fields carried by an issue.
type DateField string

const (
	FieldUpdated  DateField = "updated"
	FieldCreated  DateField = "created"
	FieldResolved DateField = "resolutiondate"
)

// String returns the string representation of the date field.
func (f DateField) String() string {
	return string(f)
}

// ParentRef is a reference from a child issue to its parent (epic, feature, initiative...).
type ParentRef struct {
	Key     string `json:"key"`
	Summary string `json:"summary,omitempty"`
}

// HealthIndicators are derived per issue at aggregation time and never persisted.
type HealthIndicators struct {
	IsBlocked   bool `json:"is_blocked"`
	IsAging     bool `json:"is_aging"`
	IsCompleted bool `json:"is_completed"`
}

// Issue is the canonical work-item record consumed by the aggregators.
//
// Timestamps are kept as the raw strings received from the issue source;
// week.ParseTimestamp is the only place they are interpreted.
type Issue struct {
	Key         string     `json:"issue_key"`
	Summary     string     `json:"summary,omitempty"`
	Status      string     `json:"status,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	IssueType   string     `json:"issue_type,omitempty"`
	ProjectKey  string     `json:"project_key,omitempty"`
	ProjectName string     `json:"project_name,omitempty"`
	Points      *float64   `json:"points,omitempty"`
	Created     string     `json:"created,omitempty"`
	Updated     string     `json:"updated,omitempty"`
	Resolved    string     `json:"resolutiondate,omitempty"`
	Parent      *ParentRef `json:"parent,omitempty"`

	Labels      []string `json:"labels,omitempty"`
	Components  []string `json:"components,omitempty"`
	FixVersions []string `json:"fix_versions,omitempty"`

	CustomFields map[string]any `json:"custom_fields,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`

	Health *HealthIndicators `json:"health_indicators,omitempty"`
}

// PointsOrZero returns the story points, treating an absent value as 0.
func (i *Issue) PointsOrZero() float64 {
	if i.Points == nil {
		return 0
	}
	return *i.Points
}

// Timestamp returns the raw timestamp string for the given date field.
func (i *Issue) Timestamp(f DateField) string {
	switch f {
	case FieldUpdated:
		return i.Updated
	case FieldCreated:
		return i.Created
	case FieldResolved:
		return i.Resolved
	}
	return ""
}

// IsCompleted reports whether the derived health marks the issue as completed.
func (i *Issue) IsCompleted() bool {
	return i.Health != nil && i.Health.IsCompleted
}

// WithHealth returns a copy of the issue carrying the given health indicators.
// The receiver is left untouched.
func (i *Issue) WithHealth(h HealthIndicators) *Issue {
	c := *i
	c.Health = &h
	return &c
}

// Field reads a canonical field by name. For parent lookups the name is the
// configured parent field: "parent" reads Parent, any other name is looked up
// in Attributes and, for custom field ids, in CustomFields.
func (i *Issue) Field(name string) (any, bool) {
	switch strings.ToLower(name) {
	case "issue_key", "key":
		return i.Key, i.Key != ""
	case "summary":
		return i.Summary, i.Summary != ""
	case "status":
		return i.Status, i.Status != ""
	case "assignee":
		return i.Assignee, i.Assignee != ""
	case "issue_type":
		return i.IssueType, i.IssueType != ""
	case "project_key":
		return i.ProjectKey, i.ProjectKey != ""
	case "project_name":
		return i.ProjectName, i.ProjectName != ""
	case "labels":
		return i.Labels, len(i.Labels) > 0
	case "components":
		return i.Components, len(i.Components) > 0
	case "fix_versions":
		return i.FixVersions, len(i.FixVersions) > 0
	case "parent":
		if i.Parent == nil {
			return nil, false
		}
		return *i.Parent, true
	}

	if v, ok := i.Attributes[name]; ok && v != nil {
		return v, true
	}
	if strings.HasPrefix(name, CustomFieldPrefix) {
		if v, ok := i.CustomFields[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ParentRefFromValue converts a raw parent value into a ParentRef.
// Objects yield their "key" and "summary" (or "fields.summary"); a bare
// string is the key itself.
func ParentRefFromValue(v any) (ParentRef, bool) {
	switch p := v.(type) {
	case ParentRef:
		return p, p.Key != ""
	case *ParentRef:
		if p == nil {
			return ParentRef{}, false
		}
		return *p, p.Key != ""
	case string:
		key := strings.TrimSpace(p)
		return ParentRef{Key: key}, key != ""
	case map[string]any:
		key, _ := p["key"].(string)
		if key == "" {
			return ParentRef{}, false
		}
		ref := ParentRef{Key: key}
		if s, ok := p["summary"].(string); ok {
			ref.Summary = s
		} else if fields, ok := p["fields"].(map[string]any); ok {
			ref.Summary, _ = fields["summary"].(string)
		}
		return ref, true
	}
	return ParentRef{}, false
}

// UnmarshalJSON decodes an issue in either the flat or the nested JIRA
// shape through NormalizeIssue.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = *NormalizeIssue(raw)
	return nil
}
