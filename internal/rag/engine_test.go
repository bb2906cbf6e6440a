package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/llm/providers"
	"github.com/jmallari/pactum/internal/vector"
)

func newTestStore(t *testing.T) *document.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := document.Open(filepath.Join(dir, "catalog.db"), filepath.Join(dir, "pdfs"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedDocument(t *testing.T, store *document.Store, id string, pages []contract.PageText) {
	t.Helper()
	doc := contract.Document{
		ID:         id,
		Filename:   id + ".pdf",
		Pages:      len(pages),
		SizeBytes:  1024,
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveDocument(context.Background(), doc, pages, nil))
}

func TestEngineAskReturnsCitations(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "This agreement is governed by the laws of the State of Delaware. Payment is due within 30 days of invoice."},
		{Page: 2, Text: "The term of this agreement shall be 3 years with automatic renewal."},
	})

	engine := NewEngine(store, providers.NewLocalProvider(), nil, NewChunker(80, 16), 3)
	result, err := engine.Ask(context.Background(), "What is the governing law of the agreement?", nil, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Answer)
	require.NotEmpty(t, result.Citations)

	for _, citation := range result.Citations {
		require.Equal(t, "doc-1", citation.DocumentID)
		require.NotZero(t, citation.Page)
		require.LessOrEqual(t, len(citation.Text), contract.CitationTextLimit)
		pages, err := store.PageTexts(context.Background(), citation.DocumentID)
		require.NoError(t, err)
		pageText := pages[citation.Page-1].Text
		require.Equal(t, citation.Text, pageText[citation.StartChar:citation.StartChar+len(citation.Text)])
	}
}

func TestEngineAskScopesToRequestedDocuments(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-a", []contract.PageText{
		{Page: 1, Text: "The supplier provides maintenance services for industrial equipment."},
	})
	seedDocument(t, store, "doc-b", []contract.PageText{
		{Page: 1, Text: "The licensee pays royalties for use of the licensed software."},
	})

	engine := NewEngine(store, providers.NewLocalProvider(), nil, NewChunker(80, 16), 5)
	result, err := engine.Ask(context.Background(), "What royalties does the licensee pay?", []string{"doc-b"}, 0)
	require.NoError(t, err)
	for _, citation := range result.Citations {
		require.Equal(t, "doc-b", citation.DocumentID)
	}
}

func TestEngineAskStreamEmitsTokens(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "Either party may terminate with 60 days written notice."},
	})

	engine := NewEngine(store, providers.NewLocalProvider(), nil, NewChunker(80, 16), 3)
	var streamed strings.Builder
	result, err := engine.AskStream(context.Background(), "How can the contract be terminated?", nil, 0, func(token string) error {
		streamed.WriteString(token)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, result.Answer, strings.TrimSpace(streamed.String()))
}

func TestEngineAskNoDocuments(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, providers.NewLocalProvider(), nil, nil, 5)

	_, err := engine.Ask(context.Background(), "Anything?", nil, 0)
	require.ErrorIs(t, err, ErrNoDocuments)

	_, err = engine.Ask(context.Background(), "Anything?", []string{"missing-doc"}, 0)
	require.ErrorIs(t, err, ErrNoDocuments)
}

func TestEngineAskEmptyQuestion(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, providers.NewLocalProvider(), nil, nil, 5)
	_, err := engine.Ask(context.Background(), "  ", nil, 0)
	require.Error(t, err)
}

func TestEngineAskHonorsRequestTopK(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "The supplier delivers goods monthly. Payment is due within 30 days of invoice. " +
			"Late payment accrues interest at 2 percent. Invoices are sent on the first business day. " +
			"Disputed invoices must be raised within 10 days of receipt."},
	})

	engine := NewEngine(store, providers.NewLocalProvider(), nil, NewChunker(60, 12), 5)

	result, err := engine.Ask(context.Background(), "When is payment due after invoice?", nil, 0)
	require.NoError(t, err)
	require.Greater(t, len(result.Citations), 1)

	result, err = engine.Ask(context.Background(), "When is payment due after invoice?", nil, 1)
	require.NoError(t, err)
	require.Len(t, result.Citations, 1)
}

// faultyVectorStore is a remote backend whose writes or reads can be made to
// fail, backed by a working in-memory index otherwise.
type faultyVectorStore struct {
	index     *vector.MemoryIndex
	upsertErr error
	searchErr error
}

func newFaultyVectorStore() *faultyVectorStore {
	return &faultyVectorStore{index: vector.NewMemoryIndex("")}
}

func (f *faultyVectorStore) Name() string       { return "faulty" }
func (f *faultyVectorStore) Available() bool    { return true }
func (f *faultyVectorStore) Collection() string { return f.index.Collection() }

func (f *faultyVectorStore) EnsureCollection(ctx context.Context, dim int) error {
	return f.index.EnsureCollection(ctx, dim)
}

func (f *faultyVectorStore) UpsertChunks(ctx context.Context, chunks []contract.Chunk, vectors [][]float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.index.UpsertChunks(ctx, chunks, vectors)
}

func (f *faultyVectorStore) Search(ctx context.Context, query []float32, limit int) ([]vector.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.index.Search(ctx, query, limit)
}

func TestEngineAskSurvivesRemoteUpsertFailure(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "This agreement is governed by the laws of the State of Delaware."},
	})

	remote := newFaultyVectorStore()
	remote.upsertErr = errors.New("connection refused")

	engine := NewEngine(store, providers.NewLocalProvider(), remote, NewChunker(80, 16), 3)
	result, err := engine.Ask(context.Background(), "What is the governing law?", nil, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Answer)
	require.NotEmpty(t, result.Citations)
	require.Equal(t, "doc-1", result.Citations[0].DocumentID)
}

func TestEngineAskFallsBackWhenRemoteSearchFails(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-1", []contract.PageText{
		{Page: 1, Text: "Either party may terminate with 60 days written notice."},
	})

	remote := newFaultyVectorStore()
	engine := NewEngine(store, providers.NewLocalProvider(), remote, NewChunker(80, 16), 3)

	// Indexing succeeds on the remote, then every query against it fails.
	remote.searchErr = errors.New("query timed out")

	result, err := engine.Ask(context.Background(), "How can the contract be terminated?", nil, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Answer)
	require.NotEmpty(t, result.Citations)
}
