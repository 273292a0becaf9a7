package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
)

type stubScanService struct {
	mu     sync.Mutex
	queued []string
	errFor map[string]error
}

func (s *stubScanService) QueueScan(ctx context.Context, projectID string) (*models.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errFor[projectID]; ok {
		return nil, err
	}
	s.queued = append(s.queued, projectID)
	return &models.Scan{ID: "scan_" + projectID, ProjectID: projectID}, nil
}

func (s *stubScanService) StartScan(ctx context.Context, scanID string) error { return nil }
func (s *stubScanService) GetScan(ctx context.Context, scanID string) (*models.Scan, error) {
	return nil, interfaces.ErrNotFound
}
func (s *stubScanService) CancelScan(scanID string) error         { return nil }
func (s *stubScanService) ProcessNext(ctx context.Context)        {}
func (s *stubScanService) RecoverOrphans(ctx context.Context) error { return nil }
func (s *stubScanService) Shutdown()                              {}

type stubProjectStorage struct {
	interfaces.ProjectStorage
	projects map[models.ScanFrequency][]*models.Project
	err      error
}

func (s *stubProjectStorage) ListProjectsByFrequency(ctx context.Context, freq models.ScanFrequency) ([]*models.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.projects[freq], nil
}

type stubStorage struct {
	interfaces.StorageManager
	projects *stubProjectStorage
}

func (s *stubStorage) ProjectStorage() interfaces.ProjectStorage { return s.projects }

func newTestScheduler(projects *stubProjectStorage, scans *stubScanService) *Service {
	return NewService(scans, &stubStorage{projects: projects}, common.ScanFrequenciesConfig{
		Daily:   "0 0 * * *",
		Weekly:  "0 0 * * 0",
		Monthly: "0 0 1 * *",
	}, common.GetLogger())
}

func TestSchedulerStartStop(t *testing.T) {
	svc := newTestScheduler(&stubProjectStorage{}, &stubScanService{})
	assert.False(t, svc.IsRunning())

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	// Start is idempotent
	require.NoError(t, svc.Start())

	svc.Stop()
	assert.False(t, svc.IsRunning())
}

func TestSchedulerRejectsBadCronSpec(t *testing.T) {
	svc := newTestScheduler(&stubProjectStorage{}, &stubScanService{})
	svc.config.Daily = "not a cron spec"
	assert.Error(t, svc.Start())
}

func TestRunFrequencyQueuesAllProjects(t *testing.T) {
	scans := &stubScanService{}
	projects := &stubProjectStorage{projects: map[models.ScanFrequency][]*models.Project{
		models.FrequencyDaily: {
			{ID: "proj_1"}, {ID: "proj_2"},
		},
	}}
	svc := newTestScheduler(projects, scans)

	svc.runFrequency(models.FrequencyDaily)
	assert.Equal(t, []string{"proj_1", "proj_2"}, scans.queued)
}

func TestRunFrequencyIsolatesProjectFailures(t *testing.T) {
	scans := &stubScanService{errFor: map[string]error{"proj_bad": errors.New("boom")}}
	projects := &stubProjectStorage{projects: map[models.ScanFrequency][]*models.Project{
		models.FrequencyWeekly: {
			{ID: "proj_bad"}, {ID: "proj_good"},
		},
	}}
	svc := newTestScheduler(projects, scans)

	svc.runFrequency(models.FrequencyWeekly)
	assert.Equal(t, []string{"proj_good"}, scans.queued)
}

func TestRunFrequencySurvivesStorageError(t *testing.T) {
	scans := &stubScanService{}
	projects := &stubProjectStorage{err: errors.New("db down")}
	svc := newTestScheduler(projects, scans)

	svc.runFrequency(models.FrequencyMonthly)
	assert.Empty(t, scans.queued)
}
