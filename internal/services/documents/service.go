package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

var supportedExtensions = map[string]bool{
	".csv": true, ".tsv": true, ".xlsx": true,
	".pdf":  true,
	".docx": true,
	".txt":  true, ".md": true, ".markdown": true,
}

// Supported reports whether the loader can read files with this name
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Service manages knowledge base entries
type Service struct {
	storage interfaces.KnowledgeBaseStorage
	dir     string
	logger  arbor.ILogger
}

// NewService creates a new knowledge base service. Added files are copied into dir.
func NewService(storage interfaces.KnowledgeBaseStorage, dir string, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		dir:     dir,
		logger:  logger,
	}
}

// AddFile copies a document into the KB directory and records it WITHOUT
// embedding. The pipeline's KB ingest stage embeds entries not yet marked.
func (s *Service) AddFile(ctx context.Context, path string) (*models.KnowledgeBaseEntry, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: unsupported document type %q", interfaces.ErrParse, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	entry := &models.KnowledgeBaseEntry{
		ID:   common.NewKnowledgeBaseID(),
		Name: filepath.Base(path),
		Date: time.Now(),
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create kb directory: %w", err)
	}
	dest := filepath.Join(s.dir, entry.ID+"_"+entry.Name)
	if err := copyFile(path, dest); err != nil {
		return nil, err
	}

	entry.Path = dest
	if abs, err := filepath.Abs(dest); err == nil {
		entry.URL = "file://" + filepath.ToSlash(abs)
	}

	if err := s.storage.SaveEntry(ctx, entry); err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("failed to save kb entry: %w", err)
	}

	s.logger.Info().
		Str("id", entry.ID).
		Str("name", entry.Name).
		Int64("bytes", info.Size()).
		Msg("KB document added (embedding runs on the next pipeline ingest)")

	return entry, nil
}

// ListEntries returns every KB entry
func (s *Service) ListEntries(ctx context.Context) ([]*models.KnowledgeBaseEntry, error) {
	entries, err := s.storage.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list kb entries: %w", err)
	}
	return entries, nil
}

// RemoveEntry deletes the entry and its copied file
func (s *Service) RemoveEntry(ctx context.Context, id string) error {
	entry, err := s.storage.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("kb entry not found: %w", err)
	}

	if err := s.storage.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete kb entry: %w", err)
	}

	if entry.Path != "" && strings.HasPrefix(filepath.Clean(entry.Path), filepath.Clean(s.dir)) {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", entry.Path).Msg("Failed to remove kb file")
		}
	}

	s.logger.Info().Str("id", id).Str("name", entry.Name).Msg("KB document removed")
	return nil
}

// RemoveAll deletes every entry, returning how many were removed
func (s *Service) RemoveAll(ctx context.Context) (int, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if err := s.RemoveEntry(ctx, entry.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
