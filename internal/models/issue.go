package models

import "time"

// IssueType identifies a detected SEO defect. These strings are bit-stable.
type IssueType string

const (
	IssueMissingTitle          IssueType = "missing_title"
	IssueTitleLength           IssueType = "title_length"
	IssueMissingMetaDesc       IssueType = "missing_meta_description"
	IssueMetaDescriptionLength IssueType = "meta_description_length"
	IssueMissingH1             IssueType = "missing_h1"
	IssueMultipleH1            IssueType = "multiple_h1"
	IssueNonHTMLContent        IssueType = "non_html_content"
	IssueError                 IssueType = "error"
)

// IssueSeverity ranks how serious an issue is
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// Issue is a detected SEO defect on a page at a given scan
type Issue struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	ScanID      string                 `json:"scan_id"`
	PageID      string                 `json:"page_id"`
	IssueType   IssueType              `json:"issue_type"`
	Description string                 `json:"description"`
	Severity    IssueSeverity          `json:"severity"`
	IsFixed     bool                   `json:"is_fixed"`
	Details     map[string]interface{} `json:"details,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
