package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/rankriot/rankriot/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ProjectStorage manages project rows
type ProjectStorage interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjectsByFrequency(ctx context.Context, freq models.ScanFrequency) ([]*models.Project, error)
	UpdateProjectRobots(ctx context.Context, id string, policy *models.RobotsPolicy) error
	UpdateProjectLastScan(ctx context.Context, id string, ts time.Time) error
}

// ScanStatusUpdate carries the mutable fields of a scan status transition.
// Nil pointers leave the corresponding column untouched.
type ScanStatusUpdate struct {
	Status        models.ScanStatus
	QueuePosition *int
	ClearPosition bool
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Error         *string
}

// ScanStorage manages scan rows and their live counters
type ScanStorage interface {
	InsertScan(ctx context.Context, scan *models.Scan) error
	GetScan(ctx context.Context, id string) (*models.Scan, error)
	UpdateScanStatus(ctx context.Context, id string, update ScanStatusUpdate) error
	IncrementScanProgress(ctx context.Context, id string, pages, links, issues int) error
	CountOngoingScans(ctx context.Context, projectID string) (int, error)
	HasScanInProgress(ctx context.Context, projectID string) (bool, error)
	ListQueuedScans(ctx context.Context, limit int) ([]*models.Scan, error)
	ListScansByProject(ctx context.Context, projectID string, limit int) ([]*models.Scan, error)
	ListScansByStatus(ctx context.Context, status models.ScanStatus) ([]*models.Scan, error)
}

// PageStorage manages page rows and scan snapshots
type PageStorage interface {
	FindPage(ctx context.Context, projectID, url string) (*models.Page, error)
	UpsertPage(ctx context.Context, page *models.Page) error
	InsertScanSnapshot(ctx context.Context, snapshot *models.ScanPageSnapshot) error
}

// LinkStorage manages the link graph
type LinkStorage interface {
	UpsertLinks(ctx context.Context, links []*models.PageLink) error
}

// IssueStorage manages detected issues
type IssueStorage interface {
	InsertIssues(ctx context.Context, issues []*models.Issue) error
	CountIssuesForScan(ctx context.Context, scanID string) (int, error)
}

// StorageManager aggregates the persistence ports
type StorageManager interface {
	ProjectStorage() ProjectStorage
	ScanStorage() ScanStorage
	PageStorage() PageStorage
	LinkStorage() LinkStorage
	IssueStorage() IssueStorage
	Ping(ctx context.Context) error
	Close() error
}
