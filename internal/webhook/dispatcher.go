// Package webhook manages event subscriptions and delivers event
// notifications without blocking the request path.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/common/telemetry"
	"github.com/jmallari/pactum/internal/document"
)

// Deliverable events.
const (
	EventIngestComplete  = "ingest.complete"
	EventExtractComplete = "extract.complete"
	EventAskComplete     = "ask.complete"
	EventAuditComplete   = "audit.complete"
)

var knownEvents = map[string]bool{
	EventIngestComplete:  true,
	EventExtractComplete: true,
	EventAskComplete:     true,
	EventAuditComplete:   true,
}

// ValidateEvents rejects empty subscriptions and unknown event names.
func ValidateEvents(events []string) error {
	if len(events) == 0 {
		return fmt.Errorf("at least one event required")
	}
	for _, event := range events {
		if !knownEvents[event] {
			return fmt.Errorf("unknown event %q", event)
		}
	}
	return nil
}

// Envelope is the JSON body POSTed to subscribers.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Dispatcher persists subscriptions in the catalog and fans events out to
// subscribers asynchronously. A per-URL circuit breaker keeps a dead
// endpoint from consuming retry budget on every event.
type Dispatcher struct {
	store      *document.Store
	client     *http.Client
	maxRetries int
	backoff    time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	wg sync.WaitGroup
}

func NewDispatcher(store *document.Store) *Dispatcher {
	return &Dispatcher{
		store:      store,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Register stores a new subscription after validating the URL and events.
func (d *Dispatcher) Register(ctx context.Context, rawURL string, events []string) (document.Webhook, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return document.Webhook{}, fmt.Errorf("invalid webhook url %q", rawURL)
	}
	if err := ValidateEvents(events); err != nil {
		return document.Webhook{}, err
	}
	hook := document.Webhook{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Events:    events,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.SaveWebhook(ctx, hook); err != nil {
		return document.Webhook{}, err
	}
	common.Logger().Info("webhook: registered", "webhook_id", hook.ID, "events", strings.Join(events, ","))
	return hook, nil
}

// Unregister removes a subscription. Returns document.ErrNotFound when the
// ID is unknown.
func (d *Dispatcher) Unregister(ctx context.Context, id string) error {
	if err := d.store.DeleteWebhook(ctx, id); err != nil {
		return err
	}
	common.Logger().Info("webhook: unregistered", "webhook_id", id)
	return nil
}

// List returns all registered subscriptions.
func (d *Dispatcher) List(ctx context.Context) ([]document.Webhook, error) {
	return d.store.ListWebhooks(ctx)
}

// Trigger delivers the event to every subscriber asynchronously. The caller
// never waits on subscriber endpoints.
func (d *Dispatcher) Trigger(event string, payload interface{}) {
	logger := common.Logger()
	hooks, err := d.store.ListWebhooks(context.Background())
	if err != nil {
		logger.Error("webhook: listing subscriptions failed", "event", event, "error", err)
		return
	}
	subscribed := 0
	for _, hook := range hooks {
		if !subscribedTo(hook, event) {
			continue
		}
		subscribed++
		envelope := Envelope{Event: event, Timestamp: time.Now().UTC(), Payload: payload}
		d.wg.Add(1)
		go func(target string) {
			defer d.wg.Done()
			d.deliver(target, envelope)
		}(hook.URL)
	}
	logger.Debug("webhook: event triggered", "event", event, "subscribers", subscribed)
}

// Wait blocks until in-flight deliveries finish. Called during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func subscribedTo(hook document.Webhook, event string) bool {
	for _, e := range hook.Events {
		if e == event {
			return true
		}
	}
	return false
}

func (d *Dispatcher) breaker(target string) *gobreaker.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.breakers[target]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        target,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
		d.breakers[target] = cb
	}
	return cb
}

func (d *Dispatcher) deliver(target string, envelope Envelope) {
	logger := common.Logger()
	body, err := json.Marshal(envelope)
	if err != nil {
		logger.Error("webhook: encoding envelope failed", "event", envelope.Event, "error", err)
		telemetry.RecordWebhookDelivery(false)
		return
	}
	cb := d.breaker(target)
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
		_, err = cb.Execute(func() (interface{}, error) {
			return nil, d.post(target, body)
		})
		if err == nil {
			telemetry.RecordWebhookDelivery(true)
			logger.Debug("webhook: delivered", "event", envelope.Event, "url", target, "attempt", attempt+1)
			return
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			break
		}
	}
	telemetry.RecordWebhookDelivery(false)
	logger.Error("webhook: delivery failed", "event", envelope.Event, "url", target, "error", err)
}

func (d *Dispatcher) post(target string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
