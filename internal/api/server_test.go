package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallari/pactum/internal/audit"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/extract"
	"github.com/jmallari/pactum/internal/llm/providers"
	"github.com/jmallari/pactum/internal/rag"
	"github.com/jmallari/pactum/internal/webhook"
)

func newTestServer(t *testing.T) (*httptest.Server, *document.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := document.Open(filepath.Join(dir, "catalog.db"), filepath.Join(dir, "pdfs"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := providers.NewLocalProvider()
	engine := rag.NewEngine(store, provider, nil, rag.NewChunker(120, 24), 5)
	server := NewServer(store, engine, extract.New(provider), audit.New(), webhook.NewDispatcher(store))

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func seedDocument(t *testing.T, store *document.Store, id string, pages []contract.PageText) {
	t.Helper()
	doc := contract.Document{
		ID:         id,
		Filename:   id + ".pdf",
		Pages:      len(pages),
		SizeBytes:  4096,
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveDocument(context.Background(), doc, pages, nil))
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	ts, _ := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	resp, err := http.Post(ts.URL+"/v1/ingest", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestRejectsNonPDF(t *testing.T) {
	ts, _ := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", "contract.docx")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a pdf"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(ts.URL+"/v1/ingest", writer.FormDataContentType(), &body)
	require.NoError(t, err)

	var errResp errorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errResp.Error, "contract.docx")
}

func TestAskReturnsAnswerWithCitations(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "This agreement shall be governed by the laws of the State of Delaware. Payment is due within 30 days of invoice."},
	})

	resp := postJSON(t, ts.URL+"/v1/ask", askRequest{Question: "What is the governing law?"})
	var answer askResponse
	decodeBody(t, resp, &answer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, answer.Answer)
	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, "doc-1", answer.Citations[0].DocumentID)
	assert.Equal(t, 1, answer.Citations[0].Page)
}

func TestAskHonorsTopK(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "Payment is due within 30 days of invoice receipt. Late payments accrue interest " +
			"at a rate of 2 percent per month until settled in full. Invoices are issued on the " +
			"first business day of each month and cover the preceding billing period. Any disputed " +
			"invoice amounts must be raised in writing within 10 days of receipt or are deemed accepted."},
	})

	resp := postJSON(t, ts.URL+"/v1/ask", askRequest{Question: "When is payment due after an invoice?", TopK: 1})
	var answer askResponse
	decodeBody(t, resp, &answer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, answer.Citations, 1)
}

func TestAskWithoutDocuments(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/ask", askRequest{Question: "Anything?"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAskRequiresQuestion(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/ask", askRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAskStreamEmitsSSEEvents(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "Either party may terminate this agreement with 60 days written notice."},
	})

	resp := postJSON(t, ts.URL+"/v1/ask/stream", askRequest{Question: "How can the agreement be terminated?"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "event: token")
	assert.Contains(t, body, "event: citations")
	assert.Contains(t, body, "event: done")
}

func TestExtractFallsBackToRegex(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "This agreement is between Acme Corporation and Beta Holdings LLC. " +
			"It is effective as of January 15, 2024 and governed by the laws of the State of Delaware."},
	})

	resp := postJSON(t, ts.URL+"/v1/extract", extractRequest{DocumentID: "doc-1"})
	var result extractResponse
	decodeBody(t, resp, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, extract.MethodRegex, result.ExtractionMethod)
	assert.NotEmpty(t, result.Parties)
	assert.Equal(t, "January 15, 2024", result.EffectiveDate)
}

func TestExtractUnknownDocument(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/extract", extractRequest{DocumentID: "missing"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuditFlagsRiskyClauses(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "This agreement shall automatically renew unless either party gives 15 days prior written notice."},
		{Page: 2, Text: "The supplier accepts unlimited liability for all claims arising under this agreement."},
	})

	resp := postJSON(t, ts.URL+"/v1/audit", extractRequest{DocumentID: "doc-1"})
	var result auditResponse
	decodeBody(t, resp, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, result.Findings)

	types := map[string]contract.Severity{}
	for _, finding := range result.Findings {
		types[finding.ClauseType] = finding.Severity
	}
	assert.Equal(t, contract.SeverityHigh, types["auto_renewal"])
	assert.Equal(t, contract.SeverityHigh, types["liability"])
}

func TestWebhookLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/webhooks", webhookRequest{
		URL:    "http://example.com/notify",
		Events: []string{webhook.EventIngestComplete},
	})
	var hook document.Webhook
	decodeBody(t, resp, &hook)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, hook.ID)

	listResp, err := http.Get(ts.URL + "/v1/webhooks")
	require.NoError(t, err)
	var list webhookListResponse
	decodeBody(t, listResp, &list)
	require.Len(t, list.Webhooks, 1)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/webhooks/%s", ts.URL, hook.ID), nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	again, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	again.Body.Close()
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
}

func TestWebhookRejectsUnknownEvent(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/webhooks", webhookRequest{
		URL:    "http://example.com/notify",
		Events: []string{"document.deleted"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var health healthResponse
	decodeBody(t, resp, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, Version, health.Version)
}

func TestStatsCountsDocuments(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{{Page: 1, Text: "text"}})

	resp, err := http.Get(ts.URL + "/v1/stats")
	require.NoError(t, err)
	var stats map[string]interface{}
	decodeBody(t, resp, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	docs, ok := stats["documents"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), docs["total_stored"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestLogsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/logs")
	require.NoError(t, err)
	var logs map[string]interface{}
	decodeBody(t, resp, &logs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, ok := logs["entries"]
	assert.True(t, ok)
}

func TestListDocuments(t *testing.T) {
	ts, store := newTestServer(t)
	seedDocument(t, store, "doc-1", []contract.PageText{{Page: 1, Text: "text"}})
	seedDocument(t, store, "doc-2", []contract.PageText{{Page: 1, Text: "more text"}})

	resp, err := http.Get(ts.URL + "/v1/documents")
	require.NoError(t, err)
	var list struct {
		Documents []contract.Document `json:"documents"`
		Total     int                 `json:"total"`
	}
	decodeBody(t, resp, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Documents, 2)
	assert.True(t, strings.HasPrefix(list.Documents[0].Filename, "doc-"))
}
