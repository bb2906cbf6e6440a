package rag

import (
	"fmt"
	"strings"

	"github.com/jmallari/pactum/internal/llm"
	"github.com/jmallari/pactum/internal/vector"
)

// NoAnswerMessage is the refusal the model is instructed to produce when the
// retrieved excerpts do not support an answer.
const NoAnswerMessage = "I don't have enough information to answer this question based on the provided contracts."

const systemPrompt = "You are a contract analysis expert. Answer the question using ONLY the provided contract excerpts. " +
	"Do not rely on outside knowledge and do not speculate. " +
	"If the excerpts do not contain the information needed, respond exactly with: \"" + NoAnswerMessage + "\" " +
	"Keep the answer concise and grounded in the excerpts."

// buildMessages assembles the grounded chat turn: one system instruction and
// one user message carrying the labelled excerpts followed by the question.
func buildMessages(question string, results []vector.SearchResult) []llm.Message {
	var excerpts strings.Builder
	for _, res := range results {
		docID, _ := res.Payload["document_id"].(string)
		page := payloadInt(res.Payload, "page")
		content, _ := res.Payload["content"].(string)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Fprintf(&excerpts, "[Document %s | Page %d]\n%s\n\n", docID, page, content)
	}
	user := fmt.Sprintf("Contract excerpts:\n\n%s\nQuestion: %s", excerpts.String(), question)
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

// payloadInt reads an integer payload field, tolerating the float64 values
// JSON decoding produces.
func payloadInt(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}
