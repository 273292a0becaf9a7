package crawler

import (
	"fmt"
	"unicode/utf8"

	"github.com/rankriot/rankriot/internal/models"
)

// Title and meta description length bounds, in characters
const (
	titleMinLength = 10
	titleMaxLength = 70
	metaMinLength  = 50
	metaMaxLength  = 160
)

// Analyze derives SEO issues from one fetched page. The checks are pure;
// identifiers and scan linkage are filled in by the caller. Rules run in a
// fixed order so repeated scans of the same page report issues stably.
func Analyze(result *PageResult) []models.Issue {
	var issues []models.Issue

	add := func(issueType models.IssueType, severity models.IssueSeverity, desc string, details map[string]interface{}) {
		issues = append(issues, models.Issue{
			IssueType:   issueType,
			Severity:    severity,
			Description: desc,
			Details:     details,
		})
	}

	if result.FetchError != nil {
		add(models.IssueError, models.SeverityHigh,
			fmt.Sprintf("Page could not be fetched: %v", result.FetchError), nil)
		return issues
	}

	if result.HTTPStatus >= 400 {
		add(models.IssueError, models.SeverityHigh,
			fmt.Sprintf("Page returned HTTP %d", result.HTTPStatus),
			map[string]interface{}{"http_status": result.HTTPStatus})
		return issues
	}

	if !result.IsHTML() {
		add(models.IssueNonHTMLContent, models.SeverityMedium,
			fmt.Sprintf("Content type %q is not HTML; content checks skipped", result.ContentType),
			map[string]interface{}{"content_type": result.ContentType})
		return issues
	}

	titleLen := utf8.RuneCountInString(result.Title)
	if result.Title == "" {
		add(models.IssueMissingTitle, models.SeverityHigh,
			"Page has no <title> element", nil)
	} else if titleLen < titleMinLength || titleLen > titleMaxLength {
		add(models.IssueTitleLength, models.SeverityMedium,
			fmt.Sprintf("Title is %d characters; recommended range is %d to %d",
				titleLen, titleMinLength, titleMaxLength),
			map[string]interface{}{"length": titleLen})
	}

	metaLen := utf8.RuneCountInString(result.MetaDesc)
	if result.MetaDesc == "" {
		add(models.IssueMissingMetaDesc, models.SeverityMedium,
			"Page has no meta description", nil)
	} else if metaLen < metaMinLength || metaLen > metaMaxLength {
		add(models.IssueMetaDescriptionLength, models.SeverityLow,
			fmt.Sprintf("Meta description is %d characters; recommended range is %d to %d",
				metaLen, metaMinLength, metaMaxLength),
			map[string]interface{}{"length": metaLen})
	}

	switch len(result.H1s) {
	case 0:
		add(models.IssueMissingH1, models.SeverityMedium,
			"Page has no <h1> heading", nil)
	case 1:
		// ok
	default:
		add(models.IssueMultipleH1, models.SeverityMedium,
			fmt.Sprintf("Page has %d <h1> headings; exactly one is recommended", len(result.H1s)),
			map[string]interface{}{"count": len(result.H1s)})
	}

	return issues
}
