package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
	"github.com/jmallari/pactum/internal/document"
	"github.com/jmallari/pactum/internal/llm"
	"github.com/jmallari/pactum/internal/vector"
)

// ErrNoDocuments is returned when a question targets documents that are not
// in the catalog, or the catalog is empty.
var ErrNoDocuments = errors.New("no documents available")

const DefaultTopK = 5

// Result is a grounded answer with the excerpts that back it.
type Result struct {
	Answer    string              `json:"answer"`
	Citations []contract.Citation `json:"citations"`
}

// Engine chunks, embeds, and indexes documents on demand, then answers
// questions over the indexed chunks. Embeddings always land in the in-process
// index; ChromaDB is kept in sync when reachable and preferred for search.
type Engine struct {
	store    *document.Store
	provider llm.Provider
	remote   vector.Store
	memory   *vector.MemoryIndex
	chunker  *Chunker
	topK     int

	mu       sync.Mutex
	indexed  map[string]bool
	chunks   map[string]contract.Chunk
	degraded bool
}

// NewEngine wires the engine. remote may be nil when no ChromaDB is
// configured.
func NewEngine(store *document.Store, provider llm.Provider, remote vector.Store, chunker *Chunker, topK int) *Engine {
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{
		store:    store,
		provider: provider,
		remote:   remote,
		memory:   vector.NewMemoryIndex(""),
		chunker:  chunker,
		topK:     topK,
		indexed:  make(map[string]bool),
		chunks:   make(map[string]contract.Chunk),
	}
}

// Index chunks and embeds a document immediately. Called after ingest so the
// first question does not pay the embedding cost.
func (e *Engine) Index(ctx context.Context, documentID string) error {
	return e.ensureIndexed(ctx, []string{documentID})
}

// Ask answers a question over the given documents. A nil or empty docIDs
// slice means all stored documents; topK <= 0 uses the engine default.
func (e *Engine) Ask(ctx context.Context, question string, docIDs []string, topK int) (Result, error) {
	return e.ask(ctx, question, docIDs, topK, nil)
}

// AskStream behaves like Ask but forwards answer tokens as they arrive.
func (e *Engine) AskStream(ctx context.Context, question string, docIDs []string, topK int, onToken llm.TokenFunc) (Result, error) {
	return e.ask(ctx, question, docIDs, topK, onToken)
}

func (e *Engine) ask(ctx context.Context, question string, docIDs []string, topK int, onToken llm.TokenFunc) (Result, error) {
	if topK <= 0 {
		topK = e.topK
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, errors.New("question required")
	}
	resolved, err := e.resolveDocuments(ctx, docIDs)
	if err != nil {
		return Result{}, err
	}
	if err := e.ensureIndexed(ctx, resolved); err != nil {
		return Result{}, err
	}
	results, err := e.retrieve(ctx, question, resolved, topK)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{Answer: NoAnswerMessage}, nil
	}
	messages := buildMessages(question, results)
	var answer string
	if onToken != nil {
		answer, err = e.provider.ChatStream(ctx, messages, onToken)
	} else {
		answer, err = e.provider.Chat(ctx, messages)
	}
	if err != nil {
		return Result{}, fmt.Errorf("answer synthesis: %w", err)
	}
	return Result{
		Answer:    strings.TrimSpace(answer),
		Citations: e.citations(results),
	}, nil
}

// resolveDocuments validates requested IDs against the catalog, or expands to
// every stored document when none are given.
func (e *Engine) resolveDocuments(ctx context.Context, docIDs []string) ([]string, error) {
	if len(docIDs) == 0 {
		all, err := e.store.DocumentIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, ErrNoDocuments
		}
		return all, nil
	}
	resolved := make([]string, 0, len(docIDs))
	for _, id := range docIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := e.store.Document(ctx, id); err != nil {
			if errors.Is(err, document.ErrNotFound) {
				return nil, fmt.Errorf("document %s: %w", id, ErrNoDocuments)
			}
			return nil, err
		}
		resolved = append(resolved, id)
	}
	if len(resolved) == 0 {
		return nil, ErrNoDocuments
	}
	return resolved, nil
}

func (e *Engine) ensureIndexed(ctx context.Context, docIDs []string) error {
	logger := common.Logger()
	for _, id := range docIDs {
		e.mu.Lock()
		done := e.indexed[id]
		e.mu.Unlock()
		if done {
			continue
		}
		pages, err := e.store.PageTexts(ctx, id)
		if err != nil {
			return err
		}
		chunks, err := e.chunker.ChunkPages(id, pages)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			logger.Warn("rag: document produced no chunks", "document_id", id)
			e.markIndexed(id, nil)
			continue
		}
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}
		vectors, err := e.provider.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", id, err)
		}
		dim := vector.VectorDimension(vectors)
		if err := e.memory.EnsureCollection(ctx, dim); err != nil {
			return err
		}
		if err := e.memory.UpsertChunks(ctx, chunks, vectors); err != nil {
			return err
		}
		if e.remoteUsable() {
			if err := e.remote.EnsureCollection(ctx, dim); err == nil {
				err = e.remote.UpsertChunks(ctx, chunks, vectors)
			}
			if err != nil {
				logger.Warn("rag: remote index unavailable, continuing with in-process index",
					"document_id", id, "error", err)
				e.mu.Lock()
				e.degraded = true
				e.mu.Unlock()
			}
		}
		e.markIndexed(id, chunks)
		logger.Info("rag: document indexed", "document_id", id, "chunks", len(chunks))
	}
	return nil
}

func (e *Engine) markIndexed(id string, chunks []contract.Chunk) {
	e.mu.Lock()
	e.indexed[id] = true
	for _, chunk := range chunks {
		e.chunks[chunk.ID] = chunk
	}
	e.mu.Unlock()
}

func (e *Engine) remoteUsable() bool {
	if e.remote == nil || !e.remote.Available() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.degraded
}

// retrieve embeds the question and returns the best topK chunks restricted to
// the requested documents.
func (e *Engine) retrieve(ctx context.Context, question string, docIDs []string, topK int) ([]vector.SearchResult, error) {
	vectors, err := e.provider.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("question embedding missing")
	}
	allowed := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = true
	}
	// Over-fetch so post-filtering by document still fills topK.
	limit := topK * 4
	var results []vector.SearchResult
	if e.remoteUsable() {
		results, err = e.remote.Search(ctx, vectors[0], limit)
		if err != nil {
			common.Logger().Warn("rag: remote search failed, using in-process index", "error", err)
			results = nil
		}
	}
	if results == nil {
		results, err = e.memory.Search(ctx, vectors[0], limit)
		if err != nil {
			return nil, err
		}
	}
	filtered := make([]vector.SearchResult, 0, topK)
	for _, res := range results {
		docID, _ := res.Payload["document_id"].(string)
		if !allowed[docID] {
			continue
		}
		filtered = append(filtered, e.hydrate(res))
		if len(filtered) == topK {
			break
		}
	}
	return filtered, nil
}

// hydrate fills missing payload fields from the chunk cache, covering remote
// hits whose stored metadata lacks the chunk text.
func (e *Engine) hydrate(res vector.SearchResult) vector.SearchResult {
	content, _ := res.Payload["content"].(string)
	if content != "" {
		return res
	}
	e.mu.Lock()
	chunk, ok := e.chunks[res.ID]
	e.mu.Unlock()
	if !ok {
		return res
	}
	res.Payload["content"] = chunk.Text
	res.Payload["document_id"] = chunk.DocumentID
	res.Payload["page"] = chunk.Page
	res.Payload["start_char"] = chunk.StartChar
	res.Payload["end_char"] = chunk.EndChar
	return res
}

func (e *Engine) citations(results []vector.SearchResult) []contract.Citation {
	citations := make([]contract.Citation, 0, len(results))
	for _, res := range results {
		docID, _ := res.Payload["document_id"].(string)
		content, _ := res.Payload["content"].(string)
		citations = append(citations, contract.Citation{
			DocumentID: docID,
			Page:       payloadInt(res.Payload, "page"),
			StartChar:  payloadInt(res.Payload, "start_char"),
			EndChar:    payloadInt(res.Payload, "end_char"),
			Text:       contract.Excerpt(content),
		})
	}
	return citations
}
