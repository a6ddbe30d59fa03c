package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// SourceAdapter fetches candidate items from one configured source
type SourceAdapter interface {
	Fetch(ctx context.Context) ([]models.ContentItem, error)
}

// SourceFactory builds the adapter for a source config
type SourceFactory interface {
	Build(source *models.SourceConfig) (SourceAdapter, error)
}
