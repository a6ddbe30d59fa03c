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

// PostStorage persists posts created by the local publisher
type PostStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPostStorage creates a new PostStorage instance
func NewPostStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PostStorage {
	return &PostStorage{db: db, logger: logger}
}

func (s *PostStorage) SavePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		return fmt.Errorf("post ID is required")
	}
	if err := s.db.Store().Upsert(post.ID, post); err != nil {
		return fmt.Errorf("%w: failed to save post: %v", interfaces.ErrPersistence, err)
	}
	return nil
}

func (s *PostStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.Store().Get(id, &post)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: post %s", interfaces.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// FindBySourceURL returns the most recently updated post for a source URL
func (s *PostStorage) FindBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error) {
	var posts []models.Post
	query := badgerhold.Where("SourceURL").Eq(sourceURL).Index("SourceURL").SortBy("UpdatedAt").Reverse()
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to find post by source url: %w", err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: post for %s", interfaces.ErrNotFound, sourceURL)
	}
	return &posts[0], nil
}

// ListPosts returns the newest posts first. limit <= 0 returns all.
func (s *PostStorage) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []models.Post
	if err := s.db.Store().Find(&posts, query); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	result := make([]*models.Post, len(posts))
	for i := range posts {
		result[i] = &posts[i]
	}
	return result, nil
}
