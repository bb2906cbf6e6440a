package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallari/pactum/internal/document"
)

func newTestStore(t *testing.T) *document.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := document.Open(filepath.Join(dir, "catalog.db"), filepath.Join(dir, "pdfs"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestValidateEvents(t *testing.T) {
	require.NoError(t, ValidateEvents([]string{EventIngestComplete, EventAuditComplete}))
	require.Error(t, ValidateEvents(nil))
	require.Error(t, ValidateEvents([]string{"document.deleted"}))
}

func TestRegisterRejectsInvalidURL(t *testing.T) {
	d := NewDispatcher(newTestStore(t))
	_, err := d.Register(context.Background(), "not-a-url", []string{EventIngestComplete})
	require.Error(t, err)
	_, err = d.Register(context.Background(), "ftp://example.com/hook", []string{EventIngestComplete})
	require.Error(t, err)
}

func TestTriggerDeliversEnvelope(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Envelope
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope Envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		mu.Lock()
		received = append(received, envelope)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	d := NewDispatcher(newTestStore(t))
	_, err := d.Register(context.Background(), receiver.URL, []string{EventIngestComplete})
	require.NoError(t, err)

	d.Trigger(EventIngestComplete, map[string]interface{}{"document_id": "doc-1"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, EventIngestComplete, received[0].Event)
	assert.False(t, received[0].Timestamp.IsZero())
	payload, ok := received[0].Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "doc-1", payload["document_id"])
}

func TestTriggerSkipsUnsubscribedEvents(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer receiver.Close()

	d := NewDispatcher(newTestStore(t))
	_, err := d.Register(context.Background(), receiver.URL, []string{EventAuditComplete})
	require.NoError(t, err)

	d.Trigger(EventIngestComplete, map[string]interface{}{"document_id": "doc-1"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestTriggerRetriesFailedDelivery(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()
		if current == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	d := NewDispatcher(newTestStore(t))
	d.backoff = 0
	_, err := d.Register(context.Background(), receiver.URL, []string{EventAskComplete})
	require.NoError(t, err)

	d.Trigger(EventAskComplete, map[string]interface{}{"question": "q"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestUnregister(t *testing.T) {
	d := NewDispatcher(newTestStore(t))
	hook, err := d.Register(context.Background(), "http://example.com/hook", []string{EventExtractComplete})
	require.NoError(t, err)

	require.NoError(t, d.Unregister(context.Background(), hook.ID))
	err = d.Unregister(context.Background(), hook.ID)
	require.ErrorIs(t, err, document.ErrNotFound)

	hooks, err := d.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hooks)
}
