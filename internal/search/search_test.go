package search

import (
	"errors"
	"reflect"
	"testing"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

func issue(key, typ, assignee string, labels ...string) *model.Issue {
	return &model.Issue{Key: key, Summary: "Summary of " + key, IssueType: typ, Assignee: assignee, Labels: labels, ProjectKey: "APP"}
}

func fixtureTimeline() []model.EpicGroup {
	done := &model.HealthIndicators{IsCompleted: true}
	a1 := issue("A-1", "Task", "Anna", "backend")
	a2 := issue("A-2", "Story", "Bela", "backend", "frontend")
	a3 := issue("A-3", "Task", "Cecil", "backend", "frontend")
	a4 := issue("A-4", "Bug", "Kiss,Mate", "ops")
	a5 := issue("A-5", "Story", "Kiss,Mate")
	a3.Health = done
	a5.Health = done
	return []model.EpicGroup{
		{EpicKey: "E-1", TotalIssues: 3, ChildIssues: []*model.Issue{a1, a2, a3}},
		{EpicKey: model.NoParentKey, TotalIssues: 2, ChildIssues: []*model.Issue{a4, a5}},
	}
}

func childKeys(timeline []model.EpicGroup) []string {
	var keys []string
	for _, g := range timeline {
		for _, iss := range g.ChildIssues {
			keys = append(keys, iss.Key)
		}
	}
	return keys
}

func TestTokenize(t *testing.T) {
	for _, tc := range []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"labels:backend", []string{"labels:backend"}},
		{`(labels:backend,frontend | assignee:"kiss,mate") & issuetype:task`,
			[]string{"(", "labels:backend,frontend", "|", `assignee:"kiss,mate"`, ")", "&", "issuetype:task"}},
		{"login  bug&key:A-1", []string{"login  bug", "&", "key:A-1"}},
		{`summary:"a|b"`, []string{`summary:"a`, "|", `b"`}},
	} {
		if got := Tokenize(tc.query); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestParse_Predicates(t *testing.T) {
	for _, tc := range []struct {
		query string
		want  *Predicate
	}{
		{"labels:Backend", &Predicate{Field: "labels", Groups: [][]string{{"backend"}}}},
		{"label:a,b;c", &Predicate{Field: "labels", Groups: [][]string{{"a", "b"}, {"c"}}}},
		{`Assignee:"Kiss,Mate"`, &Predicate{Field: "assignee", Groups: [][]string{{"kiss,mate"}}}},
		{"issue_key:A-1", &Predicate{Field: "key", Groups: [][]string{{"a-1"}}}},
		{"type:Task", &Predicate{Field: "issuetype", Groups: [][]string{{"task"}}}},
		{"project_key:APP", &Predicate{Field: "project", Groups: [][]string{{"app"}}}},
		{"fix_versions:1.2", &Predicate{Field: "fixversion", Groups: [][]string{{"1.2"}}}},
		{"component:api", &Predicate{Field: "components", Groups: [][]string{{"api"}}}},
		{"Login Bug", &Predicate{Field: TextField, Groups: [][]string{{"login bug"}}}},
		{"labels:a,,b", &Predicate{Field: "labels", Groups: [][]string{{"a", "b"}}}},
		{"summary:url:http", &Predicate{Field: "summary", Groups: [][]string{{"url:http"}}}},
	} {
		t.Run(tc.query, func(t *testing.T) {
			got, err := Parse(tc.query)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tc.query, got, tc.want)
			}
		})
	}
}

func TestParse_Precedence(t *testing.T) {
	got, err := Parse("a | b & c")
	if err != nil {
		t.Fatal(err)
	}
	if s := got.String(); s != "(a | (b & c))" {
		t.Errorf("String() = %s", s)
	}
	got, err = Parse("(a | b) & c")
	if err != nil {
		t.Fatal(err)
	}
	if s := got.String(); s != "((a | b) & c)" {
		t.Errorf("String() = %s", s)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, q := range []string{
		"(labels:a",
		"labels:a)",
		"labels:a &",
		"& labels:a",
		"a || b",
		"()",
		"labels:",
		"labels: ; , ",
		":value",
	} {
		t.Run(q, func(t *testing.T) {
			_, err := Parse(q)
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Parse(%q) error = %v, want ErrSyntax", q, err)
			}
			if ParseSearchQuery(q) != nil {
				t.Errorf("ParseSearchQuery(%q) should be nil", q)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, q := range []string{"", "   "} {
		expr, err := Parse(q)
		if expr != nil || err != nil {
			t.Errorf("Parse(%q) = %v, %v", q, expr, err)
		}
	}
}

func TestFilterTimeline_Scenario(t *testing.T) {
	got := FilterTimeline(fixtureTimeline(), `(labels:backend,frontend | assignee:"kiss,mate") & issuetype:task`)
	if keys := childKeys(got); !reflect.DeepEqual(keys, []string{"A-3"}) {
		t.Fatalf("filtered keys = %v, want [A-3]", keys)
	}
	if len(got) != 1 || got[0].EpicKey != "E-1" {
		t.Fatalf("expected only E-1, got %+v", got)
	}
	if g := got[0]; g.TotalIssues != 1 || g.CompletedIssues != 1 || g.CompletionPct != 100 {
		t.Errorf("recomputed group = %+v", g)
	}
}

func TestFilterTimeline_Recompute(t *testing.T) {
	timeline := fixtureTimeline()
	got := FilterTimeline(timeline, "labels:backend")

	if len(got) != 1 {
		t.Fatalf("expected the No Parent group to be dropped, got %d groups", len(got))
	}
	if g := got[0]; g.TotalIssues != 3 || g.CompletedIssues != 1 || g.CompletionPct != 33.3 {
		t.Errorf("group = %+v", g)
	}
	if len(timeline[1].ChildIssues) != 2 {
		t.Error("input timeline was mutated")
	}
}

func TestFilterTimeline_NoFilter(t *testing.T) {
	timeline := fixtureTimeline()
	for _, q := range []string{"", "(broken"} {
		if got := FilterTimeline(timeline, q); len(childKeys(got)) != 5 {
			t.Errorf("FilterTimeline(%q) filtered issues: %v", q, childKeys(got))
		}
	}
}

func TestMatches_RoundTrip(t *testing.T) {
	issues := childKeys(fixtureTimeline())
	byKey := map[string]*model.Issue{}
	for _, g := range fixtureTimeline() {
		for _, iss := range g.ChildIssues {
			byKey[iss.Key] = iss
		}
	}
	has := func(iss *model.Issue, label string) bool {
		for _, l := range iss.Labels {
			if l == label {
				return true
			}
		}
		return false
	}

	for _, tc := range []struct {
		query  string
		manual func(*model.Issue) bool
	}{
		{"labels:backend & labels:frontend", func(i *model.Issue) bool { return has(i, "backend") && has(i, "frontend") }},
		{"labels:ops | issuetype:story", func(i *model.Issue) bool { return has(i, "ops") || i.IssueType == "Story" }},
		{"(issuetype:task | issuetype:bug) & assignee:a", func(i *model.Issue) bool {
			return (i.IssueType == "Task" || i.IssueType == "Bug") && (i.Assignee == "Anna" || i.Assignee == "Kiss,Mate")
		}},
		{"labels:front;ops", func(i *model.Issue) bool { return has(i, "frontend") || has(i, "ops") }},
		{"key:a-1 | key:a-5", func(i *model.Issue) bool { return i.Key == "A-1" || i.Key == "A-5" }},
	} {
		t.Run(tc.query, func(t *testing.T) {
			expr := ParseSearchQuery(tc.query)
			if expr == nil {
				t.Fatalf("query %q did not parse", tc.query)
			}
			for _, k := range issues {
				iss := byKey[k]
				if got, want := Matches(expr, iss), tc.manual(iss); got != want {
					t.Errorf("%s: Matches = %v, want %v", k, got, want)
				}
			}
		})
	}
}

func TestMatchesValue(t *testing.T) {
	for _, tc := range []struct {
		name   string
		value  any
		filter string
		want   bool
	}{
		{"ScalarSubstring", "Backend Team", "end te", true},
		{"ScalarMiss", "Backend", "front", false},
		{"StringList", []string{"Alpha", "Beta"}, "bet", true},
		{"TagObjects", []any{map[string]any{"name": "Payments"}}, "pay", true},
		{"Number", 3.5, "3.5", true},
		{"Nil", nil, "x", false},
		{"ParentRefSummary", model.ParentRef{Key: "E-1", Summary: "Checkout"}, "check", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesValue(tc.value, tc.filter); got != tc.want {
				t.Errorf("MatchesValue(%v, %q) = %v", tc.value, tc.filter, got)
			}
		})
	}
}

func TestTextOf(t *testing.T) {
	iss := &model.Issue{Key: "A-1", Summary: "Fix Login", Labels: []string{"Auth"}, FixVersions: []string{"v2"}}
	got := TextOf(iss)
	for _, want := range []string{"a-1", "fix login", "auth", "v2"} {
		if !MatchesValue(got, want) {
			t.Errorf("TextOf() = %q missing %q", got, want)
		}
	}
	if !Matches(ParseSearchQuery("login"), iss) {
		t.Error("free-text predicate did not match")
	}
}

func TestStrictVsLoose(t *testing.T) {
	timeline := []model.EpicGroup{{
		EpicKey:     "E-1",
		ChildIssues: []*model.Issue{issue("A-1", "Task", "Anna", "Backend")},
	}}

	if IsStrictQueryValid(timeline, "labels:BackendX") {
		t.Error("labels:BackendX should be invalid in strict mode")
	}
	if !IsStrictQueryValid(timeline, "labels:backend") {
		t.Error("labels:backend should be valid in strict mode")
	}
	if IsStrictQueryValid(timeline, "labels:back") {
		t.Error("strict mode must not accept substrings")
	}
	if got := FilterTimeline(timeline, "labels:back"); len(childKeys(got)) != 1 {
		t.Error("loose matching should accept substrings")
	}
}

func TestIsStrictQueryValid(t *testing.T) {
	timeline := fixtureTimeline()
	for _, tc := range []struct {
		query string
		want  bool
	}{
		{"", true},
		{"anything goes here", true},
		{"summary:whatever & key:zzz-9", true},
		{"issuetype:task & assignee:anna", true},
		{`assignee:"Kiss,Mate"`, true},
		{"project:app", true},
		{"labels:backend;ops", true},
		{"labels:backend,mobile", false},
		{"status:done", false},
		{"(labels:backend", false},
	} {
		t.Run(tc.query, func(t *testing.T) {
			if got := IsStrictQueryValid(timeline, tc.query); got != tc.want {
				t.Errorf("IsStrictQueryValid(%q) = %v, want %v", tc.query, got, tc.want)
			}
		})
	}
}

func TestValidateStrict_Suggestions(t *testing.T) {
	timeline := fixtureTimeline()

	problems := ValidateStrict(timeline, "compnents:api & labels:backnd")
	if len(problems) != 2 {
		t.Fatalf("problems = %+v, want 2", problems)
	}
	if p := problems[0]; p.Field != "compnents" || !reflect.DeepEqual(p.Suggestions, []string{"components"}) {
		t.Errorf("field problem = %+v", p)
	}
	if p := problems[1]; p.Value != "backnd" || len(p.Suggestions) == 0 || p.Suggestions[0] != "backend" {
		t.Errorf("value problem = %+v", p)
	}

	syntax := ValidateStrict(timeline, "labels:a &")
	if len(syntax) != 1 || syntax[0].Field != "" {
		t.Errorf("syntax problems = %+v", syntax)
	}
}

func TestFieldValueSets(t *testing.T) {
	sets := FieldValueSets(fixtureTimeline())
	if _, ok := sets["labels"]["frontend"]; !ok {
		t.Error("labels set missing frontend")
	}
	if _, ok := sets["assignee"]["kiss,mate"]; !ok {
		t.Error("assignee set missing kiss,mate")
	}
	if _, ok := sets["summary"]; ok {
		t.Error("summary is free text and has no value set")
	}
}
