package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
)

// ProjectStore persists projects
type ProjectStore struct {
	db *sql.DB
}

const projectColumns = `id, url, name, notification_email, scan_frequency, settings, robots_txt_cache, last_scan_at, created_at, updated_at`

func (s *ProjectStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

func (s *ProjectStore) ListProjectsByFrequency(ctx context.Context, freq models.ScanFrequency) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE scan_frequency = $1 ORDER BY created_at`, string(freq))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *ProjectStore) UpdateProjectRobots(ctx context.Context, id string, policy *models.RobotsPolicy) error {
	var value interface{}
	if policy != nil {
		encoded, err := marshalJSON(policy)
		if err != nil {
			return err
		}
		value = encoded
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET robots_txt_cache = $2, updated_at = now() WHERE id = $1`, id, value)
	if err != nil {
		return fmt.Errorf("update project robots: %w", err)
	}
	return nil
}

func (s *ProjectStore) UpdateProjectLastScan(ctx context.Context, id string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET last_scan_at = $2, updated_at = now() WHERE id = $1`, id, ts)
	if err != nil {
		return fmt.Errorf("update project last scan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		project      models.Project
		settingsRaw  []byte
		robotsRaw    []byte
		lastScanAt   sql.NullTime
		notification sql.NullString
	)
	err := row.Scan(
		&project.ID, &project.URL, &project.Name, &notification,
		&project.ScanFrequency, &settingsRaw, &robotsRaw,
		&lastScanAt, &project.CreatedAt, &project.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project row: %w", err)
	}

	project.NotificationEmail = notification.String
	if lastScanAt.Valid {
		project.LastScanAt = &lastScanAt.Time
	}
	if err := unmarshalJSON(settingsRaw, &project.Settings); err != nil {
		return nil, fmt.Errorf("decode project settings: %w", err)
	}
	if len(robotsRaw) > 0 {
		var policy models.RobotsPolicy
		if err := unmarshalJSON(robotsRaw, &policy); err != nil {
			return nil, fmt.Errorf("decode robots cache: %w", err)
		}
		project.RobotsTxtCache = &policy
	}
	return &project, nil
}
