package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/rag"
	"github.com/jmallari/pactum/internal/webhook"
)

// handleAskStream answers a question over SSE: token events while the answer
// is generated, one citations event, then done. Errors after the stream has
// started are reported as an error event since the status line is already
// committed.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
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
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	tokens := 0
	result, err := s.engine.AskStream(r.Context(), req.Question, req.DocumentIDs, req.TopK, func(token string) error {
		tokens++
		return writeSSE(w, flusher, "token", token)
	})
	if err != nil {
		detail := "an error occurred while processing your request"
		if errors.Is(err, rag.ErrNoDocuments) {
			detail = "no documents found to search"
		} else {
			logger.Error("stream: answering failed", "error", err)
		}
		writeSSEError(w, flusher, detail)
		return
	}
	if result.Citations == nil {
		result.Citations = []contract.Citation{}
	}
	citations, err := json.Marshal(result.Citations)
	if err != nil {
		writeSSEError(w, flusher, "encoding citations failed")
		return
	}
	if err := writeSSE(w, flusher, "citations", string(citations)); err != nil {
		return
	}
	logger.Info("stream: completed", "tokens", tokens, "citations", len(result.Citations))
	s.hooks.Trigger(webhook.EventAskComplete, map[string]interface{}{
		"question":  req.Question,
		"answer":    result.Answer,
		"citations": result.Citations,
	})
	_ = writeSSE(w, flusher, "done", "")
}

// writeSSE emits one server-sent event. Multi-line data is split across
// data: lines per the SSE framing rules.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event, data string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if _, err := w.Write([]byte(b.String())); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeSSEError(w http.ResponseWriter, flusher http.Flusher, detail string) {
	payload, _ := json.Marshal(map[string]string{"detail": detail})
	_ = writeSSE(w, flusher, "error", string(payload))
}
