package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmallari/pactum/internal/contract"
)

func syntheticPage(words int) string {
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "w%04d", i)
	}
	return b.String()
}

func TestChunkPagesSpansMatchPageText(t *testing.T) {
	chunker := NewChunker(100, 20)
	pages := []contract.PageText{
		{Page: 1, Text: syntheticPage(120)},
		{Page: 2, Text: syntheticPage(60)},
	}
	chunks, err := chunker.ChunkPages("doc-1", pages)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	byPage := map[int]string{1: pages[0].Text, 2: pages[1].Text}
	seen := map[string]bool{}
	for _, chunk := range chunks {
		require.Equal(t, "doc-1", chunk.DocumentID)
		require.Contains(t, byPage, chunk.Page)
		text := byPage[chunk.Page]
		require.GreaterOrEqual(t, chunk.StartChar, 0)
		require.LessOrEqual(t, chunk.EndChar, len(text))
		require.Equal(t, chunk.Text, text[chunk.StartChar:chunk.EndChar])
		require.LessOrEqual(t, chunk.EndChar-chunk.StartChar, 100)
		require.False(t, seen[chunk.ID], "duplicate chunk id %s", chunk.ID)
		seen[chunk.ID] = true
	}
}

func TestChunkPagesNeverCrossPages(t *testing.T) {
	chunker := NewChunker(100, 20)
	pages := []contract.PageText{
		{Page: 1, Text: syntheticPage(80)},
		{Page: 2, Text: syntheticPage(80)},
	}
	chunks, err := chunker.ChunkPages("doc-1", pages)
	require.NoError(t, err)
	for _, chunk := range chunks {
		page := pages[chunk.Page-1]
		require.Contains(t, page.Text, chunk.Text)
	}
}

func TestChunkPagesIndexAndIDs(t *testing.T) {
	chunker := NewChunker(100, 20)
	pages := []contract.PageText{{Page: 3, Text: syntheticPage(100)}}
	chunks, err := chunker.ChunkPages("doc-9", pages)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.Equal(t, contract.ChunkID("doc-9", 3, i), chunk.ID)
		if i > 0 {
			require.Greater(t, chunk.StartChar, chunks[i-1].StartChar)
		}
	}
}

func TestChunkPagesSkipsBlankPages(t *testing.T) {
	chunker := NewChunker(100, 20)
	pages := []contract.PageText{
		{Page: 1, Text: "   "},
		{Page: 2, Text: "short page"},
	}
	chunks, err := chunker.ChunkPages("doc-1", pages)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, 2, chunks[0].Page)
	require.Equal(t, "short page", chunks[0].Text)
	require.Equal(t, 0, chunks[0].StartChar)
	require.Equal(t, len("short page"), chunks[0].EndChar)
}
