package model

// Default workflow statuses used when the settings leave them empty.
var (
	DefaultFlowEndStatuses = []string{"Done", "Closed", "Resolved"}
	DefaultFlowWIPStatuses = []string{"In Progress", "In Review", "Testing", "To Do", "Backlog"}
)

// SettingsKey is the app-state key under which AppSettings are stored.
const SettingsKey = "app:settings"

// GeneralMappings holds field mappings that are not workflow specific.
type GeneralMappings struct {
	ParentField string `json:"parent_field,omitempty" toml:"parent_field"`
}

// WorkflowMappings holds the status names that drive flow metrics.
type WorkflowMappings struct {
	FlowEndStatuses []string `json:"flow_end_statuses,omitempty" toml:"flow_end_statuses"`
	FlowWIPStatuses []string `json:"flow_wip_statuses,omitempty" toml:"flow_wip_statuses"`
}

// FieldMappings groups the configured field mappings.
type FieldMappings struct {
	General  GeneralMappings  `json:"general" toml:"general"`
	Workflow WorkflowMappings `json:"workflow" toml:"workflow"`
}

// AppSettings is the read-only configuration consumed once per aggregation call.
type AppSettings struct {
	FieldMappings       FieldMappings `json:"field_mappings" toml:"field_mappings"`
	DevelopmentProjects []string      `json:"development_projects,omitempty" toml:"development_projects"`
	DevopsProjects      []string      `json:"devops_projects,omitempty" toml:"devops_projects"`
}

// WithDefaults returns a copy with empty status lists replaced by the defaults.
func (s AppSettings) WithDefaults() AppSettings {
	if len(s.FieldMappings.Workflow.FlowEndStatuses) == 0 {
		s.FieldMappings.Workflow.FlowEndStatuses = append([]string(nil), DefaultFlowEndStatuses...)
	}
	if len(s.FieldMappings.Workflow.FlowWIPStatuses) == 0 {
		s.FieldMappings.Workflow.FlowWIPStatuses = append([]string(nil), DefaultFlowWIPStatuses...)
	}
	return s
}

// ParentField returns the configured parent field (empty = no grouping).
func (s AppSettings) ParentField() string {
	return s.FieldMappings.General.ParentField
}

// FlowEndStatuses returns the configured completion statuses.
func (s AppSettings) FlowEndStatuses() []string {
	return s.FieldMappings.Workflow.FlowEndStatuses
}

// FlowWIPStatuses returns the configured in-progress statuses.
func (s AppSettings) FlowWIPStatuses() []string {
	return s.FieldMappings.Workflow.FlowWIPStatuses
}

// Merge overlays the non-empty values of other onto s.
func (s AppSettings) Merge(other AppSettings) AppSettings {
	if other.FieldMappings.General.ParentField != "" {
		s.FieldMappings.General.ParentField = other.FieldMappings.General.ParentField
	}
	if len(other.FieldMappings.Workflow.FlowEndStatuses) > 0 {
		s.FieldMappings.Workflow.FlowEndStatuses = other.FieldMappings.Workflow.FlowEndStatuses
	}
	if len(other.FieldMappings.Workflow.FlowWIPStatuses) > 0 {
		s.FieldMappings.Workflow.FlowWIPStatuses = other.FieldMappings.Workflow.FlowWIPStatuses
	}
	if len(other.DevelopmentProjects) > 0 {
		s.DevelopmentProjects = other.DevelopmentProjects
	}
	if len(other.DevopsProjects) > 0 {
		s.DevopsProjects = other.DevopsProjects
	}
	return s
}

// ProfileQuery identifies one stored issue set (a profile and one of its saved queries).
type ProfileQuery struct {
	ProfileID  string `json:"profile_id" db:"profile_id"`
	QueryID    string `json:"query_id" db:"query_id"`
	IssueCount int    `json:"issue_count" db:"issue_count"`
}
