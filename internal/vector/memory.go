package vector

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jmallari/pactum/internal/common/telemetry"
	"github.com/jmallari/pactum/internal/contract"
)

type memoryEntry struct {
	id      string
	vector  []float32
	norm    float64
	payload map[string]interface{}
}

// MemoryIndex is a brute-force cosine-similarity index used when ChromaDB is
// unreachable, and in tests. Safe for concurrent use.
type MemoryIndex struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	collection string
	dim        int
}

func NewMemoryIndex(collection string) *MemoryIndex {
	if collection == "" {
		collection = "contract_chunks"
	}
	return &MemoryIndex{
		entries:    make(map[string]memoryEntry),
		collection: collection,
	}
}

func (m *MemoryIndex) Name() string {
	return "memory"
}

func (m *MemoryIndex) Available() bool {
	return m != nil
}

func (m *MemoryIndex) Collection() string {
	if m == nil {
		return ""
	}
	return m.collection
}

func (m *MemoryIndex) EnsureCollection(ctx context.Context, dim int) error {
	if m == nil {
		return errors.New("memory index not configured")
	}
	if dim <= 0 {
		return errors.New("invalid vector dimension")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		m.dim = dim
	}
	return nil
}

func (m *MemoryIndex) UpsertChunks(ctx context.Context, chunks []contract.Chunk, vectors [][]float32) error {
	if m == nil {
		return errors.New("memory index not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx, chunk := range chunks {
		if idx >= len(vectors) || len(vectors[idx]) == 0 {
			continue
		}
		vec := vectors[idx]
		payload := ChunkPayload(chunk)
		payload["content"] = chunk.Text
		m.entries[chunk.ID] = memoryEntry{
			id:      chunk.ID,
			vector:  vec,
			norm:    vectorNorm(vec),
			payload: payload,
		}
		if m.dim == 0 {
			m.dim = len(vec)
		}
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	if m == nil {
		return nil, errors.New("memory index not configured")
	}
	if limit <= 0 {
		limit = 5
	}
	start := time.Now()
	defer func() {
		telemetry.RecordVectorSearch(m.Name(), time.Since(start))
	}()
	queryNorm := vectorNorm(vector)
	m.mu.RLock()
	results := make([]SearchResult, 0, len(m.entries))
	for _, entry := range m.entries {
		score := cosine(vector, queryNorm, entry.vector, entry.norm)
		payload := make(map[string]interface{}, len(entry.payload))
		for k, v := range entry.payload {
			payload[k] = v
		}
		results = append(results, SearchResult{ID: entry.id, Score: score, Payload: payload})
	}
	m.mu.RUnlock()
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len reports the number of indexed chunks.
func (m *MemoryIndex) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Store = (*MemoryIndex)(nil)

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, normA float64, b []float32, normB float64) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (normA * normB))
}
