package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// ChunkStorage persists the vector store as one ordered document
type ChunkStorage interface {
	LoadChunks(ctx context.Context) ([]models.Chunk, error)
	SaveChunks(ctx context.Context, chunks []models.Chunk) error
}

// KnowledgeBaseStorage persists KB document references
type KnowledgeBaseStorage interface {
	SaveEntry(ctx context.Context, entry *models.KnowledgeBaseEntry) error
	GetEntry(ctx context.Context, id string) (*models.KnowledgeBaseEntry, error)
	ListEntries(ctx context.Context) ([]*models.KnowledgeBaseEntry, error)
	MarkEmbedded(ctx context.Context, id string) error
	DeleteEntry(ctx context.Context, id string) error
}

// SourceStorage persists configured content sources
type SourceStorage interface {
	SaveSource(ctx context.Context, source *models.SourceConfig) error
	ListSources(ctx context.Context) ([]*models.SourceConfig, error)
	DeleteSource(ctx context.Context, id string) error
}

// PersonaStorage persists writing personas
type PersonaStorage interface {
	SavePersona(ctx context.Context, persona *models.Persona) error
	GetPersona(ctx context.Context, name string) (*models.Persona, error)
	ListPersonas(ctx context.Context) ([]*models.Persona, error)
	DeletePersona(ctx context.Context, name string) error
}

// TopicStorage persists the used-topics ring buffer
type TopicStorage interface {
	LoadTopics(ctx context.Context) (*models.TopicHistory, error)
	SaveTopics(ctx context.Context, history *models.TopicHistory) error
}

// PostStorage persists posts created by the local publisher
type PostStorage interface {
	SavePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	FindBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]*models.Post, error)
}

// StorageManager groups the storage backends of one database
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	ChunkStorage() ChunkStorage
	KnowledgeBaseStorage() KnowledgeBaseStorage
	SourceStorage() SourceStorage
	PersonaStorage() PersonaStorage
	TopicStorage() TopicStorage
	PostStorage() PostStorage
	Close() error
}
