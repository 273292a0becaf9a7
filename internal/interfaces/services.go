package interfaces

import (
	"context"

	"github.com/rankriot/rankriot/internal/models"
)

// ScanService queues, starts, and finalizes scans
type ScanService interface {
	QueueScan(ctx context.Context, projectID string) (*models.Scan, error)
	StartScan(ctx context.Context, scanID string) error
	GetScan(ctx context.Context, scanID string) (*models.Scan, error)
	CancelScan(scanID string) error
	ProcessNext(ctx context.Context)
	RecoverOrphans(ctx context.Context) error
	Shutdown()
}

// SchedulerService fires recurring scans from cron expressions
type SchedulerService interface {
	Start() error
	Stop()
	IsRunning() bool
}

// Notifier delivers scan-completion notifications. Fire and forget.
type Notifier interface {
	SendScanComplete(ctx context.Context, email string, project *models.Project, scan *models.Scan) error
}
