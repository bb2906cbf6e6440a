package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/webhook"
)

// handleAudit scans a stored document for risky clauses.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id required")
		return
	}
	pages, err := s.store.PageTexts(r.Context(), req.DocumentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document "+req.DocumentID+" not found")
			return
		}
		logger.Error("audit: loading document failed", "document_id", req.DocumentID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading document failed")
		return
	}
	findings := s.auditor.Audit(req.DocumentID, pages)
	if findings == nil {
		findings = []contract.Finding{}
	}
	s.hooks.Trigger(webhook.EventAuditComplete, map[string]interface{}{
		"document_id": req.DocumentID,
		"findings":    findings,
	})
	writeJSON(w, http.StatusOK, auditResponse{DocumentID: req.DocumentID, Findings: findings})
}
