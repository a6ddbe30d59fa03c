package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type geminiBackend struct {
	client     *genai.Client
	model      string
	dimensions int
}

func newGeminiBackend(ctx context.Context, apiKey, model string, dimensions int) (*geminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &geminiBackend{client: client, model: model, dimensions: dimensions}, nil
}

func (b *geminiBackend) embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	config := &genai.EmbedContentConfig{}
	if b.dimensions > 0 {
		dims := int32(b.dimensions)
		config.OutputDimensionality = &dims
	}

	result, err := b.client.Models.EmbedContent(ctx, b.model, contents, config)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini returned no embeddings")
	}
	return result.Embeddings[0].Values, nil
}
