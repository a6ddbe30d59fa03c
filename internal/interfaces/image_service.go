package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// ImageProvider finds or generates a thumbnail for a query
type ImageProvider interface {
	FindImage(ctx context.Context, query string) (*models.Image, error)
	Name() string
}
