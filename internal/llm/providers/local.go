package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const localEmbedDim = 256

// LocalProvider is a deterministic offline fallback used when no API key is
// configured, and in tests. Embeddings are hashed bag-of-words vectors, so
// similarity retrieval still works without a remote model.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Chat returns a canned completion. The prompt is never echoed back: callers
// recover JSON from model output leniently, and a prompt that embeds a JSON
// template would otherwise read back as a parseable result.
func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1].Content
	return fmt.Sprintf(
		"[local] no language model is configured, so this is a placeholder completion.\n\n"+
			"The final prompt message was %d characters long. Set OPENAI_API_KEY to get real answers.",
		len(last)), nil
}

// ChatStream emits the answer in word-sized tokens whose concatenation is
// exactly the returned answer, whitespace included.
func (l *LocalProvider) ChatStream(ctx context.Context, messages []Message, onToken TokenFunc) (string, error) {
	answer, err := l.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	if onToken != nil {
		for _, token := range splitStream(answer) {
			if err := onToken(token); err != nil {
				return answer, err
			}
		}
	}
	return answer, nil
}

// splitStream cuts text after each whitespace run, so joining the tokens
// reproduces the input byte for byte.
func splitStream(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := unicode.IsSpace(r)
		if inSpace && !isSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	return append(tokens, text[start:])
}

func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	vectors := make([][]float32, len(input))
	for i, text := range input {
		vectors[i] = hashEmbedding(text)
	}
	return vectors, nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

func hashEmbedding(text string) []float32 {
	vec := make([]float32, localEmbedDim)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		term = strings.Trim(term, ".,;:()[]{}\"'")
		if term == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%localEmbedDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
