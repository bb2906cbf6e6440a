package providers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"golang.org/x/time/rate"

	"github.com/jmallari/pactum/internal/common"
)

const (
	defaultChatModel  = "gpt-4o"
	defaultEmbedModel = "text-embedding-3-small"
	defaultEmbedBatch = 64
	defaultEmbedRPS   = 5
)

// OpenAIProvider backs the Provider interface with the OpenAI API.
type OpenAIProvider struct {
	client     openai.Client
	chatModel  string
	embedModel string
	embedBatch int
	limiter    *rate.Limiter
}

func NewOpenAIProvider(client openai.Client) *OpenAIProvider {
	chatModel := strings.TrimSpace(os.Getenv("OPENAI_CHAT_MODEL"))
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	embedModel := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	batch := defaultEmbedBatch
	if v := strings.TrimSpace(os.Getenv("OPENAI_EMBED_BATCH")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			batch = parsed
		}
	}
	rps := float64(defaultEmbedRPS)
	if v := strings.TrimSpace(os.Getenv("OPENAI_EMBED_RPS")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}
	logger := common.Logger()
	logger.Info("llm: OpenAI provider configured", "chat_model", chatModel, "embed_model", embedModel, "embed_batch", batch)
	return &OpenAIProvider{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		embedBatch: batch,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	logger := common.Logger()
	logger.Debug("llm: sending chat completion request", "model", o.chatModel, "messages", len(messages))
	resp, err := o.client.Chat.Completions.New(ctx, o.chatParams(messages))
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	logger.Debug("llm: chat completion succeeded")
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) ChatStream(ctx context.Context, messages []Message, onToken TokenFunc) (string, error) {
	logger := common.Logger()
	logger.Debug("llm: starting streaming completion", "model", o.chatModel, "messages", len(messages))
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.chatParams(messages))
	defer stream.Close()
	var answer strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		answer.WriteString(delta)
		if onToken != nil {
			if err := onToken(delta); err != nil {
				return answer.String(), err
			}
		}
	}
	if err := stream.Err(); err != nil {
		logger.Error("llm: streaming completion failed", "error", err)
		return answer.String(), err
	}
	logger.Debug("llm: streaming completion finished", "answer_length", answer.Len())
	return answer.String(), nil
}

func (o *OpenAIProvider) chatParams(messages []Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.chatModel),
		Temperature: openai.Float(0),
	}
	for _, msg := range messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	return params
}

func (o *OpenAIProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}
	logger := common.Logger()
	vectors := make([][]float32, 0, len(input))
	for start := 0; start < len(input); start += o.embedBatch {
		end := start + o.embedBatch
		if end > len(input) {
			end = len(input)
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		batch := input[start:end]
		logger.Debug("llm: creating embeddings", "model", o.embedModel, "items", len(batch))
		resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(o.embedModel),
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		})
		if err != nil {
			logger.Error("llm: embedding request failed", "error", err)
			return nil, err
		}
		for _, data := range resp.Data {
			vec := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vec[i] = float32(v)
			}
			vectors = append(vectors, vec)
		}
	}
	if len(vectors) != len(input) {
		return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(input), len(vectors))
	}
	return vectors, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}
