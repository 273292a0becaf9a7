package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
)

// Service fires recurring scans. One cron entry per frequency; each tick
// queues a scan for every project on that frequency.
type Service struct {
	cron    *cron.Cron
	scans   interfaces.ScanService
	storage interfaces.StorageManager
	config  common.ScanFrequenciesConfig
	logger  arbor.ILogger

	mu      sync.Mutex
	running bool
}

// NewService creates the scheduler without starting it
func NewService(scans interfaces.ScanService, storage interfaces.StorageManager, cfg common.ScanFrequenciesConfig, logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		scans:   scans,
		storage: storage,
		config:  cfg,
		logger:  logger,
	}
}

// Start registers the frequency entries and starts the cron loop
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	entries := []struct {
		freq models.ScanFrequency
		spec string
	}{
		{models.FrequencyDaily, s.config.Daily},
		{models.FrequencyWeekly, s.config.Weekly},
		{models.FrequencyMonthly, s.config.Monthly},
	}
	for _, entry := range entries {
		freq := entry.freq
		if _, err := s.cron.AddFunc(entry.spec, func() {
			s.runFrequency(freq)
		}); err != nil {
			return fmt.Errorf("register %s schedule %q: %w", freq, entry.spec, err)
		}
		s.logger.Info().Str("frequency", string(freq)).Str("schedule", entry.spec).Msg("Registered scan schedule")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the cron loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runFrequency queues a scan for every project on the given frequency.
// Failures are isolated per project so one bad project cannot starve the
// rest of the tick.
func (s *Service) runFrequency(freq models.ScanFrequency) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("frequency", string(freq)).Msg(fmt.Sprintf("Scheduled tick panicked: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	projects, err := s.storage.ProjectStorage().ListProjectsByFrequency(ctx, freq)
	if err != nil {
		s.logger.Error().Err(err).Str("frequency", string(freq)).Msg("Failed to list projects for schedule")
		return
	}
	if len(projects) == 0 {
		return
	}

	s.logger.Info().Str("frequency", string(freq)).Int("projects", len(projects)).Msg("Scheduled scan tick")
	for _, project := range projects {
		if _, err := s.scans.QueueScan(ctx, project.ID); err != nil {
			s.logger.Warn().Err(err).Str("project_id", project.ID).Msg("Failed to queue scheduled scan")
			continue
		}
	}
}
