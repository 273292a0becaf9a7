package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	mux.HandleFunc("/api/scans", s.app.ScanHandler.CreateScanHandler)
	mux.HandleFunc("/api/scans/", s.handleScanRoutes) // GET /{id}, POST /{id}/cancel

	mux.HandleFunc("/api/projects/", s.handleProjectRoutes) // GET /{id}/scans

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleScanRoutes dispatches /api/scans/{id} and /api/scans/{id}/cancel
func (s *Server) handleScanRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/cancel") {
		s.app.ScanHandler.CancelScanHandler(w, r)
		return
	}
	s.app.ScanHandler.GetScanHandler(w, r)
}

// handleProjectRoutes dispatches /api/projects/{id}/scans
func (s *Server) handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/scans") {
		s.app.ProjectHandler.ListProjectScansHandler(w, r)
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
