package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// VectorStore holds embedded chunks and answers similarity queries
type VectorStore interface {
	AddDocument(ctx context.Context, text, source string) (int, error)
	Search(ctx context.Context, query string, limit int) []models.ScoredChunk
	BriefSummary() string
	RecentTopics(limit int) []models.TopicPreview
	Count() int
	Clear(ctx context.Context) error
}
