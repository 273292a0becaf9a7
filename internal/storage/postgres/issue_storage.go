package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rankriot/rankriot/internal/models"
)

// IssueStore persists detected issues
type IssueStore struct {
	db *sql.DB
}

// InsertIssues writes a batch of issues in one transaction
func (s *IssueStore) InsertIssues(ctx context.Context, issues []*models.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO issues
			(id, project_id, scan_id, page_id, issue_type, description, severity, is_fixed, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("prepare issue insert: %w", err)
	}
	defer stmt.Close()

	for _, issue := range issues {
		details, err := marshalJSON(issue.Details)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			issue.ID, issue.ProjectID, issue.ScanID, issue.PageID,
			string(issue.IssueType), issue.Description, string(issue.Severity),
			issue.IsFixed, details, issue.CreatedAt); err != nil {
			return fmt.Errorf("insert issue %s: %w", issue.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit issue tx: %w", err)
	}
	return nil
}

func (s *IssueStore) CountIssuesForScan(ctx context.Context, scanID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issues WHERE scan_id = $1`, scanID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scan issues: %w", err)
	}
	return count, nil
}
