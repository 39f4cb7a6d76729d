package model

import "time"

// WeekBucket is a Monday-Sunday window identified by its ISO "YYYY-Www" label.
type WeekBucket struct {
	Label     string    `json:"week_label"`
	Monday    time.Time `json:"monday"`
	Sunday    time.Time `json:"sunday"`
	IsCurrent bool      `json:"is_current"`
}

// WeekEpicGroup lists the issues completed in one week under a single parent.
type WeekEpicGroup struct {
	EpicKey     string   `json:"epic_key"`
	EpicSummary string   `json:"epic_summary"`
	EpicClosed  bool     `json:"epic_closed"`
	Points      float64  `json:"points"`
	Issues      []*Issue `json:"issues"`
}

// CompletedWeek summarises the items completed during one week.
type CompletedWeek struct {
	WeekLabel        string          `json:"week_label"`
	DisplayLabel     string          `json:"display_label"`
	Monday           string          `json:"monday"`
	Sunday           string          `json:"sunday"`
	IsCurrent        bool            `json:"is_current"`
	Issues           []*Issue        `json:"issues"`
	EpicGroups       []WeekEpicGroup `json:"epic_groups"`
	ClosedEpicKeys   []string        `json:"closed_epic_keys"`
	TotalIssues      int             `json:"total_issues"`
	TotalEpicsLinked int             `json:"total_epics_linked"`
	TotalEpicsClosed int             `json:"total_epics_closed"`
	TotalPoints      float64         `json:"total_points"`
}
