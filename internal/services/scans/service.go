package scans

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
	"github.com/rankriot/rankriot/internal/services/crawler"
)

// ErrScanConflict is returned when the project already has a scan waiting
// in the queue
var ErrScanConflict = errors.New("project already has a queued scan")

const scanCancelledMessage = "scan cancelled"

// Crawler runs one scan traversal. Satisfied by crawler.Coordinator.
type Crawler interface {
	Crawl(ctx context.Context, project *models.Project, scan *models.Scan) (*crawler.CrawlStats, error)
}

// activeScan tracks one running scan so it can be cancelled and so
// StartScan stays idempotent
type activeScan struct {
	cancel context.CancelFunc
}

// Service supervises the scan lifecycle: queueing, per-project
// serialization, crawling, terminal transitions, and the queue pump.
type Service struct {
	storage     interfaces.StorageManager
	coordinator Crawler
	notifier    interfaces.Notifier
	logger      arbor.ILogger

	mu     sync.Mutex
	active map[string]*activeScan
	wg     sync.WaitGroup
}

// NewService wires the supervisor. notifier may be nil to disable emails.
func NewService(storage interfaces.StorageManager, coordinator Crawler, notifier interfaces.Notifier, logger arbor.ILogger) *Service {
	return &Service{
		storage:     storage,
		coordinator: coordinator,
		notifier:    notifier,
		logger:      logger,
		active:      make(map[string]*activeScan),
	}
}

// QueueScan verifies the project, creates a queued scan whose position is
// the number of ongoing scans for that project, and starts it immediately
// when nothing is in progress.
func (s *Service) QueueScan(ctx context.Context, projectID string) (*models.Scan, error) {
	project, err := s.storage.ProjectStorage().GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ongoing, err := s.storage.ScanStorage().CountOngoingScans(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("count ongoing scans: %w", err)
	}

	inProgress, err := s.storage.ScanStorage().HasScanInProgress(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("check in-progress scan: %w", err)
	}
	// One waiting scan per project is enough; a second request while one
	// is already queued behind the running scan is a conflict.
	if ongoing > 1 || (ongoing == 1 && !inProgress) {
		return nil, ErrScanConflict
	}

	position := ongoing
	scan := &models.Scan{
		ID:            common.NewScanID(),
		ProjectID:     project.ID,
		Status:        models.ScanStatusQueued,
		QueuePosition: &position,
		CreatedAt:     time.Now(),
	}
	if err := s.storage.ScanStorage().InsertScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	s.logger.Info().
		Str("scan_id", scan.ID).
		Str("project_id", project.ID).
		Int("queue_position", position).
		Msg("Scan queued")

	if !inProgress {
		s.startAsync(scan.ID)
	}
	return scan, nil
}

// GetScan returns one scan by id
func (s *Service) GetScan(ctx context.Context, scanID string) (*models.Scan, error) {
	return s.storage.ScanStorage().GetScan(ctx, scanID)
}

// StartScan runs a queued scan to a terminal state. Idempotent: a scan
// already in the active set is left alone.
func (s *Service) StartScan(ctx context.Context, scanID string) error {
	scanCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if _, running := s.active[scanID]; running {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.active[scanID] = &activeScan{cancel: cancel}
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.active, scanID)
		s.mu.Unlock()
	}()

	scan, err := s.storage.ScanStorage().GetScan(scanCtx, scanID)
	if err != nil {
		return fmt.Errorf("load scan: %w", err)
	}
	if scan.Status != models.ScanStatusQueued {
		return nil
	}

	project, err := s.storage.ProjectStorage().GetProject(scanCtx, scan.ProjectID)
	if err != nil {
		s.finalize(scan, project, fmt.Errorf("load project: %w", err))
		return err
	}

	started := time.Now()
	if err := s.storage.ScanStorage().UpdateScanStatus(scanCtx, scan.ID, interfaces.ScanStatusUpdate{
		Status:        models.ScanStatusInProgress,
		ClearPosition: true,
		StartedAt:     &started,
	}); err != nil {
		return fmt.Errorf("mark scan in progress: %w", err)
	}
	s.logger.Info().Str("scan_id", scan.ID).Str("project_id", project.ID).Msg("Scan started")

	_, crawlErr := s.coordinator.Crawl(scanCtx, project, scan)
	if scanCtx.Err() != nil && crawlErr == nil {
		crawlErr = errors.New(scanCancelledMessage)
	}

	s.finalize(scan, project, crawlErr)
	s.ProcessNext(context.Background())
	return crawlErr
}

// finalize writes the terminal state, updates the project, and fires the
// completion email. Uses a fresh context so a cancelled scan still lands
// in a terminal state.
func (s *Service) finalize(scan *models.Scan, project *models.Project, crawlErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completed := time.Now()
	update := interfaces.ScanStatusUpdate{
		Status:        models.ScanStatusCompleted,
		ClearPosition: true,
		CompletedAt:   &completed,
	}
	if crawlErr != nil {
		update.Status = models.ScanStatusFailed
		msg := crawlErr.Error()
		update.Error = &msg
	}

	if err := s.storage.ScanStorage().UpdateScanStatus(ctx, scan.ID, update); err != nil {
		s.logger.Error().Err(err).Str("scan_id", scan.ID).Msg("Failed to finalize scan")
		return
	}
	s.logger.Info().Str("scan_id", scan.ID).Str("status", string(update.Status)).Msg("Scan finished")

	if crawlErr != nil || project == nil {
		return
	}

	if err := s.storage.ProjectStorage().UpdateProjectLastScan(ctx, project.ID, completed); err != nil {
		s.logger.Warn().Err(err).Str("project_id", project.ID).Msg("Failed to update last scan time")
	}

	if s.notifier != nil && project.NotificationEmail != "" {
		final, err := s.storage.ScanStorage().GetScan(ctx, scan.ID)
		if err != nil {
			final = scan
		}
		if err := s.notifier.SendScanComplete(ctx, project.NotificationEmail, project, final); err != nil {
			s.logger.Warn().Err(err).Str("scan_id", scan.ID).Msg("Failed to send scan notification")
		}
	}
}

// CancelScan aborts a running scan. The scan lands in failed with a
// cancellation error.
func (s *Service) CancelScan(scanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	running, ok := s.active[scanID]
	if !ok {
		return interfaces.ErrNotFound
	}
	running.cancel()
	s.logger.Info().Str("scan_id", scanID).Msg("Scan cancellation requested")
	return nil
}

// ProcessNext pops the oldest queued scan across all projects and starts
// it, skipping projects that already have a scan in progress
func (s *Service) ProcessNext(ctx context.Context) {
	queued, err := s.storage.ScanStorage().ListQueuedScans(ctx, 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list queued scans")
		return
	}
	if len(queued) == 0 {
		return
	}

	next := queued[0]
	inProgress, err := s.storage.ScanStorage().HasScanInProgress(ctx, next.ProjectID)
	if err != nil {
		s.logger.Error().Err(err).Str("scan_id", next.ID).Msg("Failed to check project state")
		return
	}
	if inProgress {
		return
	}
	s.startAsync(next.ID)
}

// RecoverOrphans fails scans left in_progress by a previous run, then
// pumps the queue
func (s *Service) RecoverOrphans(ctx context.Context) error {
	orphans, err := s.storage.ScanStorage().ListScansByStatus(ctx, models.ScanStatusInProgress)
	if err != nil {
		return fmt.Errorf("list orphaned scans: %w", err)
	}

	for _, orphan := range orphans {
		completed := time.Now()
		msg := "interrupted by service restart"
		if err := s.storage.ScanStorage().UpdateScanStatus(ctx, orphan.ID, interfaces.ScanStatusUpdate{
			Status:        models.ScanStatusFailed,
			ClearPosition: true,
			CompletedAt:   &completed,
			Error:         &msg,
		}); err != nil {
			s.logger.Error().Err(err).Str("scan_id", orphan.ID).Msg("Failed to recover orphaned scan")
			continue
		}
		s.logger.Warn().Str("scan_id", orphan.ID).Msg("Recovered orphaned scan")
	}

	s.ProcessNext(ctx)
	return nil
}

// Shutdown cancels all running scans and waits for their goroutines
func (s *Service) Shutdown() {
	s.mu.Lock()
	for id, running := range s.active {
		s.logger.Info().Str("scan_id", id).Msg("Cancelling scan for shutdown")
		running.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) startAsync(scanID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.StartScan(context.Background(), scanID); err != nil {
			s.logger.Error().Err(err).Str("scan_id", scanID).Msg("Scan ended with error")
		}
	}()
}
