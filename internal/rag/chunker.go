// Package rag turns stored contract pages into retrievable chunks and answers
// questions grounded in the retrieved excerpts.
package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/jmallari/pactum/internal/contract"
)

const (
	// DefaultChunkSize and DefaultChunkOverlap mirror the splitter settings
	// the retrieval quality was tuned against.
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits page text into overlapping retrieval chunks. Chunks never
// cross page boundaries, so every chunk maps back to one page span.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
	size     int
	overlap  int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
		size:    size,
		overlap: overlap,
	}
}

// ChunkPages splits each page independently and reconstructs the character
// span of every chunk inside its page text.
func (c *Chunker) ChunkPages(documentID string, pages []contract.PageText) ([]contract.Chunk, error) {
	var chunks []contract.Chunk
	for _, page := range pages {
		text := page.Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		pieces, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", page.Page, err)
		}
		searchStart := 0
		index := 0
		for _, piece := range pieces {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			start := locate(text, piece, searchStart)
			if start < 0 {
				continue
			}
			end := start + len(piece)
			chunks = append(chunks, contract.Chunk{
				ID:         contract.ChunkID(documentID, page.Page, index),
				DocumentID: documentID,
				Page:       page.Page,
				Index:      index,
				StartChar:  start,
				EndChar:    end,
				Text:       piece,
			})
			index++
			// Consecutive chunks overlap, so the next search window starts
			// before the current chunk ends.
			searchStart = end - c.overlap
			if searchStart < 0 {
				searchStart = 0
			}
		}
	}
	return chunks, nil
}

func locate(text, piece string, from int) int {
	if from < 0 || from > len(text) {
		from = 0
	}
	if idx := strings.Index(text[from:], piece); idx >= 0 {
		return from + idx
	}
	return strings.Index(text, piece)
}
