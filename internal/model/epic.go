package model

// StatusStat aggregates issue count and points for one workflow status.
type StatusStat struct {
	Count  int     `json:"count"`
	Points float64 `json:"points"`
}

// EpicGroup is the rollup of child issues under one parent key.
// CompletionPct is points-based when TotalPoints > 0, otherwise issue-count based,
// and always in [0, 100].
type EpicGroup struct {
	EpicKey          string                `json:"epic_key"`
	EpicSummary      string                `json:"epic_summary"`
	TotalIssues      int                   `json:"total_issues"`
	CompletedIssues  int                   `json:"completed_issues"`
	InProgressIssues int                   `json:"in_progress_issues"`
	TodoIssues       int                   `json:"todo_issues"`
	TotalPoints      float64               `json:"total_points"`
	CompletedPoints  float64               `json:"completed_points"`
	CompletionPct    float64               `json:"completion_pct"`
	ByStatus         map[string]StatusStat `json:"by_status"`
	ChildIssues      []*Issue              `json:"child_issues,omitempty"`
}
