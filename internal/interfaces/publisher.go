package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// Publisher persists generated articles. Publish updates the existing post
// when one with the same source URL exists and the source is not search-derived.
type Publisher interface {
	Publish(ctx context.Context, input models.PostInput) (string, error)
	FindBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error)
}
