package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/handlers"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/services/crawler"
	"github.com/rankriot/rankriot/internal/services/notify"
	"github.com/rankriot/rankriot/internal/services/scans"
	"github.com/rankriot/rankriot/internal/services/scheduler"
	"github.com/rankriot/rankriot/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	Coordinator      *crawler.Coordinator
	ScanService      interfaces.ScanService
	SchedulerService interfaces.SchedulerService
	Notifier         interfaces.Notifier

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	ScanHandler    *handlers.ScanHandler
	ProjectHandler *handlers.ProjectHandler
}

// New wires storage, the crawl pipeline, the lifecycle supervisor, and the
// scheduler. Fails fast when the database is unreachable.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storageManager, err := storage.NewStorageManager(ctx, config.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	coordinator := crawler.NewCoordinator(storageManager, config.Crawler, logger)
	mailer := notify.NewMailer(config.Notifier, logger)
	scanService := scans.NewService(storageManager, coordinator, mailer, logger)
	schedulerService := scheduler.NewService(scanService, storageManager, config.ScanFrequencies, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		StorageManager:   storageManager,
		Coordinator:      coordinator,
		ScanService:      scanService,
		SchedulerService: schedulerService,
		Notifier:         mailer,
		APIHandler:       handlers.NewAPIHandler(),
		ScanHandler:      handlers.NewScanHandler(scanService),
		ProjectHandler:   handlers.NewProjectHandler(storageManager),
	}, nil
}

// Start recovers orphaned scans and starts the scheduler
func (a *App) Start(ctx context.Context) error {
	if err := a.ScanService.RecoverOrphans(ctx); err != nil {
		return fmt.Errorf("recover orphaned scans: %w", err)
	}
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler, cancels running scans, and closes storage
func (a *App) Shutdown() {
	a.SchedulerService.Stop()
	a.ScanService.Shutdown()
	a.Coordinator.Close()
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
	}
	a.Logger.Info().Msg("Application stopped")
}
