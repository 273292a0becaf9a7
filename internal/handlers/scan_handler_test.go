package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
	"github.com/rankriot/rankriot/internal/services/scans"
)

type stubScanService struct {
	queueFn  func(projectID string) (*models.Scan, error)
	getFn    func(scanID string) (*models.Scan, error)
	cancelFn func(scanID string) error
}

func (s *stubScanService) QueueScan(ctx context.Context, projectID string) (*models.Scan, error) {
	return s.queueFn(projectID)
}

func (s *stubScanService) GetScan(ctx context.Context, scanID string) (*models.Scan, error) {
	return s.getFn(scanID)
}

func (s *stubScanService) CancelScan(scanID string) error {
	return s.cancelFn(scanID)
}

func (s *stubScanService) StartScan(ctx context.Context, scanID string) error { return nil }
func (s *stubScanService) ProcessNext(ctx context.Context)                    {}
func (s *stubScanService) RecoverOrphans(ctx context.Context) error           { return nil }
func (s *stubScanService) Shutdown()                                          {}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateScanCreated(t *testing.T) {
	pos := 0
	handler := NewScanHandler(&stubScanService{
		queueFn: func(projectID string) (*models.Scan, error) {
			return &models.Scan{
				ID: "scan_1", ProjectID: projectID,
				Status: models.ScanStatusQueued, QueuePosition: &pos,
			}, nil
		},
	})

	req := httptest.NewRequest("POST", "/api/scans", strings.NewReader(`{"project_id":"proj_1"}`))
	rec := httptest.NewRecorder()
	handler.CreateScanHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	scan := body["scan"].(map[string]interface{})
	assert.Equal(t, "scan_1", scan["id"])
	assert.Equal(t, "queued", scan["status"])
	assert.Equal(t, float64(0), scan["queue_position"])
}

func TestCreateScanProjectNotFound(t *testing.T) {
	handler := NewScanHandler(&stubScanService{
		queueFn: func(projectID string) (*models.Scan, error) {
			return nil, interfaces.ErrNotFound
		},
	})

	req := httptest.NewRequest("POST", "/api/scans", strings.NewReader(`{"project_id":"proj_missing"}`))
	rec := httptest.NewRecorder()
	handler.CreateScanHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateScanConflict(t *testing.T) {
	handler := NewScanHandler(&stubScanService{
		queueFn: func(projectID string) (*models.Scan, error) {
			return nil, scans.ErrScanConflict
		},
	})

	req := httptest.NewRequest("POST", "/api/scans", strings.NewReader(`{"project_id":"proj_1"}`))
	rec := httptest.NewRecorder()
	handler.CreateScanHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateScanBadRequest(t *testing.T) {
	handler := NewScanHandler(&stubScanService{})

	req := httptest.NewRequest("POST", "/api/scans", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.CreateScanHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateScanMethodNotAllowed(t *testing.T) {
	handler := NewScanHandler(&stubScanService{})

	req := httptest.NewRequest("GET", "/api/scans", nil)
	rec := httptest.NewRecorder()
	handler.CreateScanHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetScan(t *testing.T) {
	handler := NewScanHandler(&stubScanService{
		getFn: func(scanID string) (*models.Scan, error) {
			return &models.Scan{ID: scanID, Status: models.ScanStatusCompleted, PagesScanned: 42}, nil
		},
	})

	req := httptest.NewRequest("GET", "/api/scans/scan_1", nil)
	rec := httptest.NewRecorder()
	handler.GetScanHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	scan := body["scan"].(map[string]interface{})
	assert.Equal(t, "scan_1", scan["id"])
	assert.Equal(t, float64(42), scan["pages_scanned"])
}

func TestGetScanNotFound(t *testing.T) {
	handler := NewScanHandler(&stubScanService{
		getFn: func(scanID string) (*models.Scan, error) {
			return nil, interfaces.ErrNotFound
		},
	})

	req := httptest.NewRequest("GET", "/api/scans/scan_missing", nil)
	rec := httptest.NewRecorder()
	handler.GetScanHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelScan(t *testing.T) {
	var cancelled string
	handler := NewScanHandler(&stubScanService{
		cancelFn: func(scanID string) error {
			cancelled = scanID
			return nil
		},
	})

	req := httptest.NewRequest("POST", "/api/scans/scan_1/cancel", nil)
	rec := httptest.NewRecorder()
	handler.CancelScanHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "scan_1", cancelled)
}

func TestCancelScanNotRunning(t *testing.T) {
	handler := NewScanHandler(&stubScanService{
		cancelFn: func(scanID string) error {
			return interfaces.ErrNotFound
		},
	})

	req := httptest.NewRequest("POST", "/api/scans/scan_idle/cancel", nil)
	rec := httptest.NewRecorder()
	handler.CancelScanHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestVersionHandler(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()
	handler.VersionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["version"])
}
