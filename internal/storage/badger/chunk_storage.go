package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// vectorDocumentKey is the key of the single record holding every chunk
const vectorDocumentKey = "vector_store"

// ChunkStorage persists the vector store as one ordered document.
// Every save rewrites the whole record.
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{db: db, logger: logger}
}

// LoadChunks returns the persisted chunks in insertion order. A missing record is an empty store.
func (s *ChunkStorage) LoadChunks(ctx context.Context) ([]models.Chunk, error) {
	var doc models.VectorDocument
	err := s.db.Store().Get(vectorDocumentKey, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return []models.Chunk{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vector store: %w", err)
	}
	return doc.Chunks, nil
}

// SaveChunks replaces the persisted document with chunks
func (s *ChunkStorage) SaveChunks(ctx context.Context, chunks []models.Chunk) error {
	doc := models.VectorDocument{
		ID:        vectorDocumentKey,
		Chunks:    chunks,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(vectorDocumentKey, &doc); err != nil {
		return fmt.Errorf("%w: failed to save vector store: %v", interfaces.ErrPersistence, err)
	}
	s.logger.Debug().Int("chunks", len(chunks)).Msg("Vector store persisted")
	return nil
}
