package providers

import "context"

// Message is a single chat turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// TokenFunc receives incremental answer text during a streaming completion.
// Returning an error aborts the stream.
type TokenFunc func(token string) error

// Provider abstracts the language-model backend used for answer synthesis,
// structured field extraction, and embeddings.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	ChatStream(ctx context.Context, messages []Message, onToken TokenFunc) (string, error)
	Embed(ctx context.Context, input []string) ([][]float32, error)
	Name() string
}
