package interfaces

import "context"

// Embedder produces embedding vectors for text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the provider and model, e.g. "openai:text-embedding-3-small"
	Name() string
}
