// Package parent resolves parent (epic) references between issues.
//
// A parent is any issue referenced by another issue's configured parent
// field, whatever its own issue type (Epic, Feature, Initiative...).
package parent

import (
	"log/slog"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// Index maps issue keys to issues of the full issue set.
type Index map[string]*model.Issue

// NewIndex indexes issues by key. Issues without a key are ignored; the first
// occurrence of a duplicate key wins.
func NewIndex(issues []*model.Issue) Index {
	idx := make(Index, len(issues))
	for _, iss := range issues {
		if iss.Key == "" {
			continue
		}
		if _, dup := idx[iss.Key]; !dup {
			idx[iss.Key] = iss
		}
	}
	return idx
}

// RefOf returns the raw parent reference of an issue for the configured
// parent field, without summary resolution.
func RefOf(iss *model.Issue, parentField string) (model.ParentRef, bool) {
	if parentField == "" {
		return model.ParentRef{}, false
	}
	v, ok := iss.Field(parentField)
	if !ok {
		return model.ParentRef{}, false
	}
	return model.ParentRefFromValue(v)
}

// ResolveParent returns the parent of an issue with its display summary:
// the inline summary when the reference carries one, otherwise the summary of
// the referenced issue in idx, otherwise the key itself.
func ResolveParent(iss *model.Issue, parentField string, idx Index) (model.ParentRef, bool) {
	ref, ok := RefOf(iss, parentField)
	if !ok {
		return model.ParentRef{}, false
	}
	if ref.Summary == "" {
		if p, found := idx[ref.Key]; found && p.Summary != "" {
			ref.Summary = p.Summary
		} else {
			ref.Summary = ref.Key
		}
	}
	return ref, true
}

// ExtractParentKeys returns the set of keys referenced as parents. With no
// parent field configured the set is empty.
func ExtractParentKeys(issues []*model.Issue, parentField string) map[string]struct{} {
	keys := make(map[string]struct{})
	if parentField == "" {
		return keys
	}
	for _, iss := range issues {
		if ref, ok := RefOf(iss, parentField); ok {
			keys[ref.Key] = struct{}{}
		}
	}
	return keys
}

// FilterParentIssues removes issues that are themselves referenced as a
// parent by another issue of the list.
func FilterParentIssues(issues []*model.Issue, parentField string) []*model.Issue {
	parents := ExtractParentKeys(issues, parentField)
	if len(parents) == 0 {
		return issues
	}
	out := make([]*model.Issue, 0, len(issues))
	for _, iss := range issues {
		if _, isParent := parents[iss.Key]; isParent {
			continue
		}
		out = append(out, iss)
	}
	if filtered := len(issues) - len(out); filtered > 0 {
		slog.Debug("filtered parent issues", "count", filtered, "parent_field", parentField)
	}
	return out
}
