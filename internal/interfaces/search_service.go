package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// SearchProvider runs a web search
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error)
	Name() string
}
