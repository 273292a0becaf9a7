package crawler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankriot/rankriot/internal/models"
)

func htmlResult() *PageResult {
	return &PageResult{
		HTTPStatus:  200,
		ContentType: "text/html; charset=utf-8",
		Title:       "A perfectly reasonable page title",
		MetaDesc:    strings.Repeat("description ", 8), // 96 chars, in range
		H1s:         []string{"Main heading"},
	}
}

func issueTypes(issues []models.Issue) []models.IssueType {
	if len(issues) == 0 {
		return nil
	}
	types := make([]models.IssueType, len(issues))
	for i, issue := range issues {
		types[i] = issue.IssueType
	}
	return types
}

func TestAnalyzeCleanPage(t *testing.T) {
	assert.Empty(t, Analyze(htmlResult()))
}

func TestAnalyzeFetchError(t *testing.T) {
	result := &PageResult{FetchError: errors.New("connection refused")}
	issues := Analyze(result)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueError, issues[0].IssueType)
	assert.Equal(t, models.SeverityHigh, issues[0].Severity)
}

func TestAnalyzeErrorStatus(t *testing.T) {
	result := htmlResult()
	result.HTTPStatus = 404
	issues := Analyze(result)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueError, issues[0].IssueType)
	// Content checks are skipped for error pages
}

func TestAnalyzeNonHTML(t *testing.T) {
	result := &PageResult{HTTPStatus: 200, ContentType: "application/pdf"}
	issues := Analyze(result)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueNonHTMLContent, issues[0].IssueType)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)
}

func TestAnalyzeTitleRules(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []models.IssueType
	}{
		{"missing", "", []models.IssueType{models.IssueMissingTitle}},
		{"too short", strings.Repeat("a", 9), []models.IssueType{models.IssueTitleLength}},
		{"min boundary ok", strings.Repeat("a", 10), nil},
		{"max boundary ok", strings.Repeat("a", 70), nil},
		{"too long", strings.Repeat("a", 71), []models.IssueType{models.IssueTitleLength}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := htmlResult()
			result.Title = tt.title
			assert.Equal(t, tt.want, issueTypes(Analyze(result)))
		})
	}
}

func TestAnalyzeMetaDescriptionRules(t *testing.T) {
	tests := []struct {
		name string
		meta string
		want []models.IssueType
	}{
		{"missing", "", []models.IssueType{models.IssueMissingMetaDesc}},
		{"too short", strings.Repeat("a", 49), []models.IssueType{models.IssueMetaDescriptionLength}},
		{"min boundary ok", strings.Repeat("a", 50), nil},
		{"max boundary ok", strings.Repeat("a", 160), nil},
		{"too long", strings.Repeat("a", 161), []models.IssueType{models.IssueMetaDescriptionLength}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := htmlResult()
			result.MetaDesc = tt.meta
			assert.Equal(t, tt.want, issueTypes(Analyze(result)))
		})
	}
}

func TestAnalyzeH1Rules(t *testing.T) {
	result := htmlResult()
	result.H1s = nil
	issues := Analyze(result)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueMissingH1, issues[0].IssueType)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)

	result = htmlResult()
	result.H1s = []string{"One", "Two"}
	issues = Analyze(result)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueMultipleH1, issues[0].IssueType)
}

func TestAnalyzeLengthCountsRunes(t *testing.T) {
	result := htmlResult()
	result.Title = strings.Repeat("ü", 10) // 10 runes, 20 bytes
	assert.Empty(t, Analyze(result))
}

func TestAnalyzeMultipleIssuesStableOrder(t *testing.T) {
	result := &PageResult{HTTPStatus: 200, ContentType: "text/html"}
	issues := Analyze(result)
	assert.Equal(t, []models.IssueType{
		models.IssueMissingTitle,
		models.IssueMissingMetaDesc,
		models.IssueMissingH1,
	}, issueTypes(issues))
}
