package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// knownKeys are the top-level raw keys consumed by NormalizeIssue. Anything
// else is preserved in Issue.Attributes.
var knownKeys = map[string]bool{
	"issue_key": true, "key": true, "id": true, "summary": true, "status": true,
	"assignee": true, "issue_type": true, "issuetype": true, "project_key": true,
	"project_name": true, "points": true, "created": true, "updated": true,
	"resolutiondate": true, "resolved": true, "parent": true, "labels": true,
	"components": true, "fix_versions": true, "fixVersions": true,
	"custom_fields": true, "attributes": true, "fields": true,
	"health_indicators": true,
}

// NormalizeIssue maps a raw issue record into the canonical Issue.
//
// Two shapes are accepted: the flat shape stored by the dashboard
// ({"issue_key": ..., "status": "Done", ...}) and the JIRA wire shape
// ({"key": ..., "fields": {"status": {"name": "Done"}, ...}}). Flat values
// win when both are present.
func NormalizeIssue(raw map[string]any) *Issue {
	fields, _ := raw["fields"].(map[string]any)

	iss := &Issue{
		Key:         firstString(raw["issue_key"], raw["key"]),
		Summary:     firstString(raw["summary"], fields["summary"]),
		Status:      firstString(raw["status"], fields["status"]),
		Assignee:    firstString(raw["assignee"], fields["assignee"]),
		IssueType:   firstString(raw["issue_type"], raw["issuetype"], fields["issuetype"]),
		ProjectKey:  firstString(raw["project_key"], projectPart(fields["project"], "key")),
		ProjectName: firstString(raw["project_name"], projectPart(fields["project"], "name")),
		Created:     firstString(raw["created"], fields["created"]),
		Updated:     firstString(raw["updated"], fields["updated"]),
		Resolved:    firstString(raw["resolutiondate"], raw["resolved"], fields["resolutiondate"]),
	}

	if p, ok := toFloat(raw["points"]); ok {
		iss.Points = &p
	} else if p, ok := toFloat(fields["points"]); ok {
		iss.Points = &p
	}

	if ref, ok := ParentRefFromValue(raw["parent"]); ok {
		iss.Parent = &ref
	} else if ref, ok := ParentRefFromValue(fields["parent"]); ok {
		iss.Parent = &ref
	}

	iss.Labels = firstList(raw["labels"], fields["labels"])
	iss.Components = firstList(raw["components"], fields["components"])
	iss.FixVersions = firstList(raw["fix_versions"], raw["fixVersions"], fields["fixVersions"], fields["fix_versions"])

	if cf, ok := raw["custom_fields"].(map[string]any); ok && len(cf) > 0 {
		iss.CustomFields = make(map[string]any, len(cf))
		for k, v := range cf {
			iss.CustomFields[k] = v
		}
	}
	for k, v := range fields {
		if !strings.HasPrefix(k, CustomFieldPrefix) || v == nil {
			continue
		}
		if iss.CustomFields == nil {
			iss.CustomFields = make(map[string]any)
		}
		if _, exists := iss.CustomFields[k]; !exists {
			iss.CustomFields[k] = v
		}
	}

	if attrs, ok := raw["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			iss.setAttribute(k, v)
		}
	}
	for k, v := range raw {
		if knownKeys[k] || v == nil {
			continue
		}
		iss.setAttribute(k, v)
	}

	if h, ok := raw["health_indicators"].(map[string]any); ok {
		iss.Health = &HealthIndicators{
			IsBlocked:   h["is_blocked"] == true,
			IsAging:     h["is_aging"] == true,
			IsCompleted: h["is_completed"] == true,
		}
	}

	return iss
}

// DecodeIssues decodes a JSON array of raw issues in either shape.
func DecodeIssues(data []byte) ([]*Issue, error) {
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	out := make([]*Issue, 0, len(raws))
	for _, raw := range raws {
		out = append(out, NormalizeIssue(raw))
	}
	return out, nil
}

func (i *Issue) setAttribute(k string, v any) {
	if i.Attributes == nil {
		i.Attributes = make(map[string]any)
	}
	i.Attributes[k] = v
}

// firstString returns the first non-empty string among the candidates.
// JIRA objects are unwrapped through their name, displayName, value or key.
func firstString(candidates ...any) string {
	for _, c := range candidates {
		if s := stringValue(c); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		for _, k := range []string{"name", "displayName", "value", "key"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func projectPart(v any, part string) any {
	if m, ok := v.(map[string]any); ok {
		return m[part]
	}
	return nil
}

// firstList returns the first candidate that is a non-empty list, with each
// element unwrapped to a string ({"name": ...} / {"value": ...} objects).
func firstList(candidates ...any) []string {
	for _, c := range candidates {
		if vals := stringList(c); len(vals) > 0 {
			return vals
		}
	}
	return nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := unwrapTag(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// unwrapTag turns a multi-value tag element into its string form.
func unwrapTag(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["name"].(string); ok && s != "" {
			return s
		}
		if s, ok := t["value"].(string); ok {
			return s
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
