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

// TopicStorage persists the used-topics ring buffer as a single record
type TopicStorage struct {
	db       *BadgerDB
	capacity int
	logger   arbor.ILogger
}

// NewTopicStorage creates a new TopicStorage instance
func NewTopicStorage(db *BadgerDB, capacity int, logger arbor.ILogger) interfaces.TopicStorage {
	return &TopicStorage{db: db, capacity: capacity, logger: logger}
}

// LoadTopics returns the stored history, or an empty one with the configured capacity
func (s *TopicStorage) LoadTopics(ctx context.Context) (*models.TopicHistory, error) {
	var history models.TopicHistory
	err := s.db.Store().Get(models.TopicHistoryID, &history)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return models.NewTopicHistory(s.capacity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load topic history: %w", err)
	}
	history.ID = models.TopicHistoryID
	history.SetCapacity(s.capacity)
	return &history, nil
}

func (s *TopicStorage) SaveTopics(ctx context.Context, history *models.TopicHistory) error {
	history.ID = models.TopicHistoryID
	if err := s.db.Store().Upsert(models.TopicHistoryID, history); err != nil {
		return fmt.Errorf("%w: failed to save topic history: %v", interfaces.ErrPersistence, err)
	}
	return nil
}
