// Package api exposes the contract intelligence service over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmallari/pactum/internal/audit"
	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/common/telemetry"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/extract"
	"github.com/jmallari/pactum/internal/rag"
	"github.com/jmallari/pactum/internal/webhook"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// maxUploadBytes bounds the size of one multipart upload request.
const maxUploadBytes = 64 << 20

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	store     *document.Store
	engine    *rag.Engine
	extractor *extract.Extractor
	auditor   *audit.Auditor
	hooks     *webhook.Dispatcher
}

func NewServer(store *document.Store, engine *rag.Engine, extractor *extract.Extractor, auditor *audit.Auditor, hooks *webhook.Dispatcher) *Server {
	return &Server{
		store:     store,
		engine:    engine,
		extractor: extractor,
		auditor:   auditor,
		hooks:     hooks,
	}
}

// Router assembles the chi router with the shared middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observeRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Post("/extract", s.handleExtract)
		r.Post("/ask", s.handleAsk)
		r.Post("/ask/stream", s.handleAskStream)
		r.Post("/audit", s.handleAudit)
		r.Get("/documents", s.handleListDocuments)
		r.Post("/webhooks", s.handleRegisterWebhook)
		r.Get("/webhooks", s.handleListWebhooks)
		r.Delete("/webhooks/{id}", s.handleUnregisterWebhook)
		r.Get("/stats", s.handleStats)
		r.Get("/logs", s.handleLogs)
	})
	return r
}

// observeRequests feeds per-endpoint latency and outcome into telemetry. The
// endpoint label is the matched route pattern, so path parameters do not
// explode metric cardinality.
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = r.URL.Path
		}
		telemetry.ObserveRequest(endpoint, ww.Status() < http.StatusBadRequest, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		common.Logger().Error("api: encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(out)
}
