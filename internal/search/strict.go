package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// KnownFields are the field names accepted by strict validation.
var KnownFields = []string{"key", "summary", "assignee", "issuetype", "project", "fixversion", "labels", "components"}

// freeTextFields accept any value in strict mode.
var freeTextFields = map[string]bool{
	"key":     true,
	"summary": true,
}

const maxSuggestions = 3

// FieldValueSets collects the lower-cased values observed per field across
// the timeline's child issues.
func FieldValueSets(timeline []model.EpicGroup) map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{})
	for _, f := range KnownFields {
		if !freeTextFields[f] {
			sets[f] = make(map[string]struct{})
		}
	}
	add := func(field string, values ...string) {
		for _, v := range values {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				sets[field][v] = struct{}{}
			}
		}
	}
	for _, g := range timeline {
		for _, iss := range g.ChildIssues {
			add("assignee", iss.Assignee)
			add("issuetype", iss.IssueType)
			add("project", iss.ProjectKey)
			add("fixversion", iss.FixVersions...)
			add("labels", iss.Labels...)
			add("components", iss.Components...)
		}
	}
	return sets
}

// Problem describes why a query fails strict validation.
type Problem struct {
	Field       string   `json:"field,omitempty"`
	Value       string   `json:"value,omitempty"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (p Problem) String() string {
	if len(p.Suggestions) == 0 {
		return p.Message
	}
	return fmt.Sprintf("%s (did you mean %s?)", p.Message, strings.Join(p.Suggestions, ", "))
}

// IsStrictQueryValid reports whether query parses, names only known fields
// and uses only values observed in the timeline for fields other than key
// and summary. Values must match exactly rather than as substrings. Free
// text and empty queries are valid.
func IsStrictQueryValid(timeline []model.EpicGroup, query string) bool {
	return len(ValidateStrict(timeline, query)) == 0
}

// ValidateStrict returns every strict-validation problem of query, with
// fuzzy suggestions for unknown fields and values.
func ValidateStrict(timeline []model.EpicGroup, query string) []Problem {
	expr, err := Parse(query)
	if err != nil {
		return []Problem{{Message: strings.TrimPrefix(err.Error(), ErrSyntax.Error()+": ")}}
	}
	if expr == nil {
		return nil
	}

	sets := FieldValueSets(timeline)
	var problems []Problem
	for _, p := range Predicates(expr) {
		if p.Field == TextField || freeTextFields[p.Field] {
			continue
		}
		observed, known := sets[p.Field]
		if !known {
			problems = append(problems, Problem{
				Field:       p.Field,
				Message:     fmt.Sprintf("unknown field %q", p.Field),
				Suggestions: suggest(p.Field, KnownFields),
			})
			continue
		}
		for _, group := range p.Groups {
			for _, v := range group {
				if _, ok := observed[v]; ok {
					continue
				}
				problems = append(problems, Problem{
					Field:       p.Field,
					Value:       v,
					Message:     fmt.Sprintf("no issue has %s %q", p.Field, v),
					Suggestions: suggest(v, sortedKeys(observed)),
				})
			}
		}
	}
	return problems
}

func suggest(pattern string, candidates []string) []string {
	var out []string
	for _, m := range fuzzy.Find(pattern, candidates) {
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
