// Package sources manages configured content sources and fetches candidate
// items from them.
package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Service manages source configurations
type Service struct {
	storage  interfaces.SourceStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates a new source Service
func NewService(storage interfaces.SourceStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		validate: validator.New(),
		logger:   logger,
	}
}

// extractSiteDomain extracts the site domain from a URL
func extractSiteDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// CreateSource validates and stores a new source
func (s *Service) CreateSource(ctx context.Context, source *models.SourceConfig) error {
	if source.ID == "" {
		source.ID = common.NewSourceID()
	}
	source.Type = models.SourceKind(strings.ToLower(strings.TrimSpace(string(source.Type))))
	source.URL = strings.TrimSpace(source.URL)
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}

	if err := s.validate.Struct(source); err != nil {
		return &interfaces.ConfigurationError{Key: "source", Message: err.Error()}
	}

	if source.Type != models.SourceKindWebSearch {
		u, err := url.Parse(source.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &interfaces.ConfigurationError{Key: "source.url", Message: fmt.Sprintf("%q is not an http(s) URL", source.URL)}
		}
	}

	if err := s.storage.SaveSource(ctx, source); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}

	s.logger.Info().
		Str("id", source.ID).
		Str("type", string(source.Type)).
		Str("site_domain", extractSiteDomain(source.URL)).
		Msg("Source created successfully")

	return nil
}

// ListSources retrieves all sources in the order they were added
func (s *Service) ListSources(ctx context.Context) ([]*models.SourceConfig, error) {
	sources, err := s.storage.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// DeleteSource deletes a source by ID
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	if err := s.storage.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	s.logger.Info().Str("id", id).Msg("Source deleted successfully")
	return nil
}
