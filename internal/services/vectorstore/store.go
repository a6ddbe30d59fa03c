// Package vectorstore keeps embedded chunks in memory, mirrors them to
// storage after every mutation and answers cosine-similarity queries.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/chunker"
)

const (
	// DefaultRelevanceFloor is the score a result must exceed to be returned
	DefaultRelevanceFloor = 0.4

	// maxTitleLength bounds the display title of a recent topic
	maxTitleLength = 80

	// snippetLength is the size of each brief-summary snippet
	snippetLength = 100
)

// Store is the in-memory vector store
type Store struct {
	storage        interfaces.ChunkStorage
	embedder       interfaces.Embedder
	logger         arbor.ILogger
	chunkSize      int
	relevanceFloor float64
	summarySamples int

	mu     sync.Mutex
	chunks []models.Chunk
	rng    *rand.Rand
}

// New loads the persisted chunks fully into memory
func New(ctx context.Context, storage interfaces.ChunkStorage, embedder interfaces.Embedder, config *common.RetrievalConfig, logger arbor.ILogger) (*Store, error) {
	chunks, err := storage.LoadChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load vector store: %w", err)
	}

	s := &Store{
		storage:        storage,
		embedder:       embedder,
		logger:         logger,
		chunkSize:      chunker.DefaultMaxLength,
		relevanceFloor: DefaultRelevanceFloor,
		summarySamples: 5,
		chunks:         chunks,
		rng:            rand.New(rand.NewSource(rand.Int63())),
	}
	if config != nil {
		if config.ChunkSize > 0 {
			s.chunkSize = config.ChunkSize
		}
		s.relevanceFloor = config.RelevanceFloor
		if config.SummarySamples > 0 {
			s.summarySamples = config.SummarySamples
		}
	}

	logger.Debug().
		Int("chunks", len(chunks)).
		Float64("relevance_floor", s.relevanceFloor).
		Int("chunk_size", s.chunkSize).
		Msg("Vector store loaded")

	return s, nil
}

// AddDocument chunks text, embeds each chunk and appends the successes.
// The store is persisted once after the loop. It returns the number of
// chunks embedded; zero is a recoverable outcome, not a fault.
func (s *Store) AddDocument(ctx context.Context, text, source string) (int, error) {
	pieces := chunker.Chunk(text, s.chunkSize)
	if len(pieces) == 0 {
		return 0, interfaces.ErrEmptyInput
	}

	provider := s.embedder.Name()
	added := make([]models.Chunk, 0, len(pieces))
	var lastErr error

	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		vector, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			lastErr = err
			s.logger.Warn().
				Err(err).
				Str("source", source).
				Int("chunk", i).
				Msg("Chunk embedding failed")
			// Every remaining chunk would fail the same way
			if errors.Is(err, interfaces.ErrConfiguration) {
				break
			}
			continue
		}

		added = append(added, models.Chunk{
			ID:       common.NewChunkID(),
			Text:     piece,
			Vector:   vector,
			Source:   source,
			Provider: provider,
		})
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, added...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("source", source).
		Int("chunks", len(pieces)).
		Int("embedded", len(added)).
		Msg("Document added to vector store")

	if err := s.persist(ctx, snapshot); err != nil {
		return len(added), err
	}
	if len(added) == 0 && lastErr != nil {
		return 0, fmt.Errorf("no chunks embedded for %s: %w", source, lastErr)
	}
	return len(added), nil
}

// Search returns at most limit chunks scoring above the relevance floor,
// highest first. Ties keep insertion order. An empty store or a failed
// query embedding yields an empty result.
func (s *Store) Search(ctx context.Context, query string, limit int) []models.ScoredChunk {
	results := []models.ScoredChunk{}
	if limit <= 0 || s.Count() == 0 {
		return results
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Query embedding failed")
		return results
	}

	s.mu.Lock()
	for _, chunk := range s.chunks {
		score := CosineSimilarity(queryVector, chunk.Vector)
		if score <= s.relevanceFloor {
			continue
		}
		results = append(results, models.ScoredChunk{Chunk: chunk, Score: score})
	}
	s.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Vector search completed")

	return results
}

// BriefSummary lists the distinct sources and a few random snippets
// without calling any AI provider.
func (s *Store) BriefSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Sources: ")
	b.WriteString(strings.Join(s.sourcesLocked(), ", "))
	b.WriteString("\nSample excerpts:\n")

	n := s.summarySamples
	if n > len(s.chunks) {
		n = len(s.chunks)
	}
	for _, idx := range s.rng.Perm(len(s.chunks))[:n] {
		b.WriteString("- ")
		b.WriteString(truncateRunes(s.chunks[idx].Text, snippetLength))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// RecentTopics returns the last limit chunks, most recent first
func (s *Store) RecentTopics(limit int) []models.TopicPreview {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		return []models.TopicPreview{}
	}
	if limit > len(s.chunks) {
		limit = len(s.chunks)
	}

	topics := make([]models.TopicPreview, 0, limit)
	for i := len(s.chunks) - 1; i >= len(s.chunks)-limit; i-- {
		chunk := s.chunks[i]
		topics = append(topics, models.TopicPreview{
			Title:  Title(chunk.Text),
			Text:   chunk.Text,
			Source: chunk.Source,
		})
	}
	return topics
}

// Sources returns the distinct chunk sources in first-seen order
func (s *Store) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourcesLocked()
}

// Count returns the number of stored chunks
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Clear empties the store and persists the empty state
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.chunks = []models.Chunk{}
	s.mu.Unlock()

	s.logger.Info().Msg("Vector store cleared")
	return s.persist(ctx, []models.Chunk{})
}

func (s *Store) persist(ctx context.Context, chunks []models.Chunk) error {
	if err := s.storage.SaveChunks(ctx, chunks); err != nil {
		s.logger.Error().Err(err).Int("chunks", len(chunks)).Msg("Failed to persist vector store")
		if errors.Is(err, interfaces.ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: %v", interfaces.ErrPersistence, err)
	}
	return nil
}

func (s *Store) snapshotLocked() []models.Chunk {
	out := make([]models.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func (s *Store) sourcesLocked() []string {
	seen := make(map[string]bool)
	var sources []string
	for _, chunk := range s.chunks {
		if chunk.Source == "" || seen[chunk.Source] {
			continue
		}
		seen[chunk.Source] = true
		sources = append(sources, chunk.Source)
	}
	return sources
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length, empty vectors and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, score))
}

// Title truncates text to at most 80 characters at the last word boundary
// and appends "..." when truncated.
func Title(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxTitleLength {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxTitleLength])
	if runes[maxTitleLength] != ' ' {
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var _ interfaces.VectorStore = (*Store)(nil)
