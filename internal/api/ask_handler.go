package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/rag"
	"github.com/jmallari/pactum/internal/webhook"
)

// handleAsk answers a question over the selected documents, grounding the
// answer in retrieved excerpts and returning their citations.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}
	result, err := s.engine.Ask(r.Context(), req.Question, req.DocumentIDs, req.TopK)
	if err != nil {
		if errors.Is(err, rag.ErrNoDocuments) {
			writeError(w, http.StatusNotFound, "no documents found to search")
			return
		}
		logger.Error("ask: answering failed", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred while processing your request")
		return
	}
	if result.Citations == nil {
		result.Citations = []contract.Citation{}
	}
	logger.Info("ask: answered", "answer_length", len(result.Answer), "citations", len(result.Citations))
	s.hooks.Trigger(webhook.EventAskComplete, map[string]interface{}{
		"question":  req.Question,
		"answer":    result.Answer,
		"citations": result.Citations,
	})
	writeJSON(w, http.StatusOK, askResponse{Answer: result.Answer, Citations: result.Citations})
}
