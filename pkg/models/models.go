// Package models defines the shared data types exchanged between the
// tracker client, the aggregator, the survey store, and the router.
package models

// IssueType identifies the tracker's issue classification.
type IssueType string

const (
	IssueTypeTask IssueType = "Task"
	IssueTypeEpic IssueType = "Epic"
)

// StatusInProgress is the tracker status name that marks a task as started.
const StatusInProgress = "In Progress"

// Project is a tracker project. Read-only, never cached locally.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Issue is a tracked work item. Timestamp fields keep the tracker's raw
// string representation: created/resolutiondate are ISO-8601 with a zone
// offset, duedate is date-only. Lexicographic ordering on these strings is
// chronological, which is what the aggregator relies on.
type Issue struct {
	Type           IssueType `json:"issue_type"`
	Created        string    `json:"created,omitempty"`
	DueDate        string    `json:"duedate,omitempty"`
	ResolutionDate string    `json:"resolutiondate,omitempty"`
	StatusName     string    `json:"status_name"`
	Summary        string    `json:"summary"`
}

// NotAvailable is the display value for a summary field with no data.
const NotAvailable = "N/A"

// ProjectSummary is the derived timeline view of a project. It is recomputed
// on every view request and never stored.
type ProjectSummary struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	ID            string   `json:"id"`
	PlannedStart  string   `json:"planned_start"`
	ActualStart   string   `json:"actual_start"`
	PlannedEnd    string   `json:"planned_end"`
	ActualEnd     string   `json:"actual_end"`
	Milestones    []string `json:"milestones"`
	ControlPoints []string `json:"control_points"`
}

// SurveyRecord maps question ids to answer text for one project key.
// Unknown question ids loaded from storage are preserved in the record;
// rendering decides how to treat them.
type SurveyRecord map[string]string
