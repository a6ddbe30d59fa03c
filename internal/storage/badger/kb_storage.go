package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// KnowledgeBaseStorage persists KB document references
type KnowledgeBaseStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKnowledgeBaseStorage creates a new KnowledgeBaseStorage instance
func NewKnowledgeBaseStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KnowledgeBaseStorage {
	return &KnowledgeBaseStorage{db: db, logger: logger}
}

func (s *KnowledgeBaseStorage) SaveEntry(ctx context.Context, entry *models.KnowledgeBaseEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("knowledge base entry ID is required")
	}
	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("%w: failed to save knowledge base entry: %v", interfaces.ErrPersistence, err)
	}
	return nil
}

func (s *KnowledgeBaseStorage) GetEntry(ctx context.Context, id string) (*models.KnowledgeBaseEntry, error) {
	var entry models.KnowledgeBaseEntry
	err := s.db.Store().Get(id, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: knowledge base entry %s", interfaces.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge base entry: %w", err)
	}
	return &entry, nil
}

// ListEntries returns all entries, oldest first
func (s *KnowledgeBaseStorage) ListEntries(ctx context.Context) ([]*models.KnowledgeBaseEntry, error) {
	var entries []models.KnowledgeBaseEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("ID").Ne("").SortBy("Date")); err != nil {
		return nil, fmt.Errorf("failed to list knowledge base entries: %w", err)
	}

	result := make([]*models.KnowledgeBaseEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

// MarkEmbedded flips the embedded flag on. It is never cleared.
func (s *KnowledgeBaseStorage) MarkEmbedded(ctx context.Context, id string) error {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.Embedded {
		return nil
	}
	entry.Embedded = true
	return s.SaveEntry(ctx, entry)
}

func (s *KnowledgeBaseStorage) DeleteEntry(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.KnowledgeBaseEntry{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("%w: knowledge base entry %s", interfaces.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete knowledge base entry: %w", err)
	}
	return nil
}
