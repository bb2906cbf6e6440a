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

// handleExtract runs structured field extraction over a stored document.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
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
		logger.Error("extract: loading document failed", "document_id", req.DocumentID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading document failed")
		return
	}

	fields, method, err := s.extractor.Extract(r.Context(), contract.JoinPages(pages))
	if err != nil {
		logger.Error("extract: extraction failed", "document_id", req.DocumentID, "error", err)
		writeError(w, http.StatusInternalServerError, "error extracting fields")
		return
	}
	logger.Info("extract: completed",
		"document_id", req.DocumentID,
		"method", method,
		"parties", len(fields.Parties),
		"signatories", len(fields.Signatories))

	resp := extractResponse{DocumentID: req.DocumentID, Fields: fields, ExtractionMethod: method}
	s.hooks.Trigger(webhook.EventExtractComplete, map[string]interface{}{
		"document_id":      req.DocumentID,
		"extracted_fields": fields,
	})
	writeJSON(w, http.StatusOK, resp)
}
