package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmallari/pactum/internal/document"
)

// handleRegisterWebhook stores a new event subscription.
func (s *Server) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hook, err := s.hooks.Register(r.Context(), req.URL, req.Events)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, hook)
}

// handleUnregisterWebhook removes a subscription by ID.
func (s *Server) handleUnregisterWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.hooks.Unregister(r.Context(), id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook "+id+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "unregistering webhook failed")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "webhook " + id + " unregistered"})
}

// handleListWebhooks returns all registered subscriptions.
func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.hooks.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing webhooks failed")
		return
	}
	if hooks == nil {
		hooks = []document.Webhook{}
	}
	writeJSON(w, http.StatusOK, webhookListResponse{Webhooks: hooks})
}
