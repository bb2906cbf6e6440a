package api

import (
	"net/http"
	"os"
	"time"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/common/telemetry"
)

// handleHealth reports catalog and storage health. Any failing check turns
// the overall status unhealthy with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"catalog":  "healthy",
		"data_dir": "healthy",
	}
	status := "healthy"
	code := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		checks["catalog"] = "unhealthy: " + err.Error()
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	if info, err := os.Stat(s.store.PDFDir()); err != nil || !info.IsDir() {
		checks["data_dir"] = "unhealthy"
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:    status,
		Checks:    checks,
		Version:   Version,
		Timestamp: time.Now().UTC(),
	})
}

// handleStats returns human-readable counters: stored documents, per-endpoint
// request tallies, and registered webhooks.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.store.CountDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "counting documents failed")
		return
	}
	hooks, err := s.hooks.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing webhooks failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": map[string]interface{}{
			"total_stored": docCount,
		},
		"api_calls": telemetry.Snapshot(),
		"webhooks": map[string]interface{}{
			"registered": len(hooks),
		},
	})
}

// handleLogs exposes the retained in-process log history.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	if entries == nil {
		entries = []common.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
