package models

import "time"

// ScanStatus represents the lifecycle state of a scan
type ScanStatus string

const (
	ScanStatusQueued     ScanStatus = "queued"
	ScanStatusInProgress ScanStatus = "in_progress"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// IsTerminal reports whether the status is a final state
func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// Scan is one traversal of a project's site
type Scan struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	Status        ScanStatus `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	PagesScanned  int        `json:"pages_scanned"`
	LinksScanned  int        `json:"links_scanned"`
	IssuesFound   int        `json:"issues_found"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
