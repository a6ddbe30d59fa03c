package embeddings

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

type openAIBackend struct {
	llm *openai.LLM
}

func newOpenAIBackend(apiKey, model, baseURL string) (*openAIBackend, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &openAIBackend{llm: llm}, nil
}

func (b *openAIBackend) embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}
	return vectors[0], nil
}
