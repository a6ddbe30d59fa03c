package embeddings

import (
	"context"
	"fmt"

	hfembed "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"
)

const featureExtraction = "feature-extraction"

// huggingFaceBackend calls the inference feature-extraction pipeline through
// the langchaingo embedder
type huggingFaceBackend struct {
	embedder *hfembed.Huggingface
}

func newHuggingFaceBackend(apiKey, model, baseURL string) (*huggingFaceBackend, error) {
	opts := []huggingface.Option{
		huggingface.WithToken(apiKey),
		huggingface.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, huggingface.WithURL(baseURL))
	}

	llm, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create huggingface client: %w", err)
	}

	embedder, err := hfembed.NewHuggingface(
		hfembed.WithClient(*llm),
		hfembed.WithModel(model),
		hfembed.WithTask(featureExtraction),
		hfembed.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create huggingface embedder: %w", err)
	}
	return &huggingFaceBackend{embedder: embedder}, nil
}

func (b *huggingFaceBackend) embed(ctx context.Context, text string) ([]float32, error) {
	return b.embedder.EmbedQuery(ctx, text)
}
