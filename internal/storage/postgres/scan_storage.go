package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
)

// ScanStore persists scans and their live counters
type ScanStore struct {
	db *sql.DB
}

const scanColumns = `id, project_id, status, queue_position, pages_scanned, links_scanned, issues_found, error, created_at, started_at, completed_at`

func (s *ScanStore) InsertScan(ctx context.Context, scan *models.Scan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, project_id, status, queue_position, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		scan.ID, scan.ProjectID, string(scan.Status), scan.QueuePosition, scan.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (s *ScanStore) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = $1`, id)
	return scanScan(row)
}

// UpdateScanStatus applies a status transition, touching only the columns
// the update names
func (s *ScanStore) UpdateScanStatus(ctx context.Context, id string, update interfaces.ScanStatusUpdate) error {
	sets := []string{"status = $2"}
	args := []interface{}{id, string(update.Status)}

	next := 3
	if update.ClearPosition {
		sets = append(sets, "queue_position = NULL")
	} else if update.QueuePosition != nil {
		sets = append(sets, fmt.Sprintf("queue_position = $%d", next))
		args = append(args, *update.QueuePosition)
		next++
	}
	if update.StartedAt != nil {
		sets = append(sets, fmt.Sprintf("started_at = $%d", next))
		args = append(args, *update.StartedAt)
		next++
	}
	if update.CompletedAt != nil {
		sets = append(sets, fmt.Sprintf("completed_at = $%d", next))
		args = append(args, *update.CompletedAt)
		next++
	}
	if update.Error != nil {
		sets = append(sets, fmt.Sprintf("error = $%d", next))
		args = append(args, *update.Error)
		next++
	}

	query := fmt.Sprintf("UPDATE scans SET %s WHERE id = $1", strings.Join(sets, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (s *ScanStore) IncrementScanProgress(ctx context.Context, id string, pages, links, issues int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET
			pages_scanned = pages_scanned + $2,
			links_scanned = links_scanned + $3,
			issues_found  = issues_found + $4
		 WHERE id = $1`,
		id, pages, links, issues)
	if err != nil {
		return fmt.Errorf("increment scan progress: %w", err)
	}
	return nil
}

// CountOngoingScans counts queued and in-progress scans for a project,
// which is the queue position assigned to the next scan plus one
func (s *ScanStore) CountOngoingScans(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scans WHERE project_id = $1 AND status IN ('queued', 'in_progress')`,
		projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ongoing scans: %w", err)
	}
	return count, nil
}

func (s *ScanStore) HasScanInProgress(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM scans WHERE project_id = $1 AND status = 'in_progress')`,
		projectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check in-progress scan: %w", err)
	}
	return exists, nil
}

// ListQueuedScans returns queued scans oldest first
func (s *ScanStore) ListQueuedScans(ctx context.Context, limit int) ([]*models.Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE status = 'queued' ORDER BY created_at ASC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list queued scans: %w", err)
	}
	return collectScans(rows)
}

func (s *ScanStore) ListScansByProject(ctx context.Context, projectID string, limit int) ([]*models.Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list project scans: %w", err)
	}
	return collectScans(rows)
}

func (s *ScanStore) ListScansByStatus(ctx context.Context, status models.ScanStatus) ([]*models.Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE status = $1 ORDER BY created_at ASC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list scans by status: %w", err)
	}
	return collectScans(rows)
}

func collectScans(rows *sql.Rows) ([]*models.Scan, error) {
	defer rows.Close()
	var scans []*models.Scan
	for rows.Next() {
		scan, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

func scanScan(row rowScanner) (*models.Scan, error) {
	var (
		scan        models.Scan
		queuePos    sql.NullInt64
		errText     sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&scan.ID, &scan.ProjectID, &scan.Status, &queuePos,
		&scan.PagesScanned, &scan.LinksScanned, &scan.IssuesFound,
		&errText, &scan.CreatedAt, &startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scan row: %w", err)
	}

	if queuePos.Valid {
		pos := int(queuePos.Int64)
		scan.QueuePosition = &pos
	}
	scan.Error = errText.String
	if startedAt.Valid {
		scan.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		scan.CompletedAt = &completedAt.Time
	}
	return &scan, nil
}
