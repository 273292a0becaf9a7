package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
)

const defaultScanListLimit = 20

// ProjectHandler exposes read-side project endpoints
type ProjectHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewProjectHandler(storage interfaces.StorageManager) *ProjectHandler {
	return &ProjectHandler{
		storage: storage,
		logger:  common.GetLogger(),
	}
}

// ListProjectScansHandler returns a project's scans newest first.
// GET /api/projects/{id}/scans?limit=N
func (h *ProjectHandler) ListProjectScansHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	projectID := strings.TrimSuffix(rest, "/scans")
	if projectID == "" || projectID == rest || strings.Contains(projectID, "/") {
		WriteError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if _, err := h.storage.ProjectStorage().GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "project not found")
			return
		}
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to load project")
		WriteError(w, http.StatusInternalServerError, "failed to load project")
		return
	}

	limit := defaultScanListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	scanList, err := h.storage.ScanStorage().ListScansByProject(r.Context(), projectID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list scans")
		WriteError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"scans":      scanList,
	})
}
