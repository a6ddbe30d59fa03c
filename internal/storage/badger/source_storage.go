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

// SourceStorage persists configured content sources
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSourceStorage creates a new SourceStorage instance
func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{db: db, logger: logger}
}

func (s *SourceStorage) SaveSource(ctx context.Context, source *models.SourceConfig) error {
	if source.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("%w: failed to save source: %v", interfaces.ErrPersistence, err)
	}
	return nil
}

// ListSources returns sources in the order they were added
func (s *SourceStorage) ListSources(ctx context.Context) ([]*models.SourceConfig, error) {
	var sources []models.SourceConfig
	if err := s.db.Store().Find(&sources, badgerhold.Where("ID").Ne("").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	result := make([]*models.SourceConfig, len(sources))
	for i := range sources {
		result[i] = &sources[i]
	}
	return result, nil
}

func (s *SourceStorage) DeleteSource(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.SourceConfig{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("%w: source %s", interfaces.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}
