package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateIssue checks an Issue for constraint violations before it is stored.
// It returns a *ValidationError if any rules fail, or nil if the issue is valid.
func ValidateIssue(iss *Issue) error {
	var ve ValidationError

	// Key: required, it identifies the issue in every operation.
	if strings.TrimSpace(iss.Key) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "issue_key", Message: "is required"})
	}

	// Points: never negative.
	if iss.Points != nil && *iss.Points < 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "points",
			Message: fmt.Sprintf("must not be negative, got %g", *iss.Points),
		})
	}

	// Parent: an issue cannot be its own parent.
	if iss.Parent != nil && iss.Parent.Key != "" && iss.Parent.Key == iss.Key {
		ve.Errors = append(ve.Errors, FieldError{Field: "parent", Message: "must not reference the issue itself"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateIssues validates every issue and reports the failures keyed by position.
func ValidateIssues(issues []*Issue) error {
	var ve ValidationError
	seen := make(map[string]int, len(issues))
	for idx, iss := range issues {
		if err := ValidateIssue(iss); err != nil {
			for _, fe := range err.(*ValidationError).Errors {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   fmt.Sprintf("issues[%d].%s", idx, fe.Field),
					Message: fe.Message,
				})
			}
			continue
		}
		if prev, dup := seen[iss.Key]; dup {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fmt.Sprintf("issues[%d].issue_key", idx),
				Message: fmt.Sprintf("duplicates issues[%d] (%s)", prev, iss.Key),
			})
			continue
		}
		seen[iss.Key] = idx
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateSettings checks AppSettings for blank status names.
func ValidateSettings(s AppSettings) error {
	var ve ValidationError
	check := func(field string, vals []string) {
		for i, v := range vals {
			if strings.TrimSpace(v) == "" {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: "must not be blank",
				})
			}
		}
	}
	check("field_mappings.workflow.flow_end_statuses", s.FieldMappings.Workflow.FlowEndStatuses)
	check("field_mappings.workflow.flow_wip_statuses", s.FieldMappings.Workflow.FlowWIPStatuses)

	if pf := s.FieldMappings.General.ParentField; pf != "" && strings.ContainsAny(pf, " \t\n") {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "field_mappings.general.parent_field",
			Message: fmt.Sprintf("invalid field name %q", pf),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
