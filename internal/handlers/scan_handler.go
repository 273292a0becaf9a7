package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/services/scans"
)

// ScanHandler exposes the scan lifecycle over HTTP
type ScanHandler struct {
	scans  interfaces.ScanService
	logger arbor.ILogger
}

func NewScanHandler(scanService interfaces.ScanService) *ScanHandler {
	return &ScanHandler{
		scans:  scanService,
		logger: common.GetLogger(),
	}
}

type createScanRequest struct {
	ProjectID string `json:"project_id"`
}

// CreateScanHandler queues a scan for a project.
// POST /api/scans {project_id}
func (h *ScanHandler) CreateScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	scan, err := h.scans.QueueScan(r.Context(), req.ProjectID)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			WriteError(w, http.StatusNotFound, "project not found")
		case errors.Is(err, scans.ErrScanConflict):
			WriteError(w, http.StatusConflict, "project already has a queued scan")
		default:
			h.logger.Error().Err(err).Str("project_id", req.ProjectID).Msg("Failed to queue scan")
			WriteError(w, http.StatusInternalServerError, "failed to queue scan")
		}
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{"scan": scan})
}

// GetScanHandler returns one scan by id.
// GET /api/scans/{id}
func (h *ScanHandler) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	scanID := strings.TrimPrefix(r.URL.Path, "/api/scans/")
	if scanID == "" || strings.Contains(scanID, "/") {
		WriteError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	scan, err := h.scans.GetScan(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "scan not found")
			return
		}
		h.logger.Error().Err(err).Str("scan_id", scanID).Msg("Failed to load scan")
		WriteError(w, http.StatusInternalServerError, "failed to load scan")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"scan": scan})
}

// CancelScanHandler aborts a running scan.
// POST /api/scans/{id}/cancel
func (h *ScanHandler) CancelScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	scanID := strings.TrimPrefix(r.URL.Path, "/api/scans/")
	scanID = strings.TrimSuffix(scanID, "/cancel")
	if scanID == "" {
		WriteError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	if err := h.scans.CancelScan(scanID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "no running scan with that id")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to cancel scan")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "cancelling",
		"scan_id": scanID,
	})
}
