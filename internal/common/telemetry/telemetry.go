// Package telemetry exposes the service's Prometheus metrics together with a
// lightweight snapshot used by the human-readable /v1/stats endpoint.
package telemetry

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "request_processing_seconds",
		Help: "Time spent processing requests.",
	}, []string{"endpoint"})

	endpointTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_requests_total",
		Help: "Requests per endpoint by outcome.",
	}, []string{"endpoint", "status"})

	ingestedDocs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contract_documents_ingested_total",
		Help: "Total documents ingested.",
	})

	ingestedPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contract_pages_ingested_total",
		Help: "Total pages of extracted text stored.",
	})

	vectorSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vector_search_total",
		Help: "Vector similarity searches by backend.",
	}, []string{"backend"})

	vectorSearchSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "vector_search_seconds",
		Help: "Vector similarity search latency.",
	}, []string{"backend"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook delivery attempts by outcome.",
	}, []string{"status"})
)

// EndpointStats is a success/failure tally for a single endpoint.
type EndpointStats struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
	Total   uint64 `json:"total"`
}

type endpointCounter struct {
	success atomic.Uint64
	failure atomic.Uint64
}

var (
	statsMu   sync.Mutex
	statsByEP = make(map[string]*endpointCounter)
)

func counterFor(endpoint string) *endpointCounter {
	statsMu.Lock()
	defer statsMu.Unlock()
	c, ok := statsByEP[endpoint]
	if !ok {
		c = &endpointCounter{}
		statsByEP[endpoint] = c
	}
	return c
}

// ObserveRequest records a finished request for both the Prometheus surface
// and the /v1/stats snapshot.
func ObserveRequest(endpoint string, success bool, duration time.Duration) {
	endpoint = normalizeKey(endpoint)
	status := "failure"
	if success {
		status = "success"
	}
	requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	endpointTotal.WithLabelValues(endpoint, status).Inc()
	c := counterFor(endpoint)
	if success {
		c.success.Add(1)
	} else {
		c.failure.Add(1)
	}
}

// RecordIngest counts a successfully stored document and its pages.
func RecordIngest(pages int) {
	ingestedDocs.Inc()
	if pages > 0 {
		ingestedPages.Add(float64(pages))
	}
}

// RecordVectorSearch records a similarity search against the named backend.
func RecordVectorSearch(backend string, duration time.Duration) {
	backend = normalizeKey(backend)
	vectorSearches.WithLabelValues(backend).Inc()
	if duration > 0 {
		vectorSearchSeconds.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

// RecordWebhookDelivery records one webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		webhookDeliveries.WithLabelValues("success").Inc()
	} else {
		webhookDeliveries.WithLabelValues("failure").Inc()
	}
}

// Snapshot returns per-endpoint request tallies for /v1/stats.
func Snapshot() map[string]EndpointStats {
	statsMu.Lock()
	defer statsMu.Unlock()
	out := make(map[string]EndpointStats, len(statsByEP))
	for endpoint, c := range statsByEP {
		success := c.success.Load()
		failure := c.failure.Load()
		out[endpoint] = EndpointStats{Success: success, Failure: failure, Total: success + failure}
	}
	return out
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "other"
	}
	return key
}
