package vectorstore

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

type memoryChunkStorage struct {
	chunks  []models.Chunk
	saves   int
	saveErr error
}

func (m *memoryChunkStorage) LoadChunks(context.Context) ([]models.Chunk, error) {
	return append([]models.Chunk(nil), m.chunks...), nil
}

func (m *memoryChunkStorage) SaveChunks(_ context.Context, chunks []models.Chunk) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.chunks = append([]models.Chunk(nil), chunks...)
	return nil
}

// keywordEmbedder maps text onto three axes by keyword
type keywordEmbedder struct {
	failOn string
	err    error
	calls  int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, interfaces.NewProviderError("fake", "m", errors.New("boom"))
	}
	lower := strings.ToLower(text)
	v := []float32{0, 0, 0}
	if strings.Contains(lower, "go") {
		v[0] = 1
	}
	if strings.Contains(lower, "rust") {
		v[1] = 1
	}
	if strings.Contains(lower, "cooking") {
		v[2] = 1
	}
	return v, nil
}

func (e *keywordEmbedder) Name() string { return "fake:keywords" }

func newTestStore(t *testing.T, storage *memoryChunkStorage, embedder interfaces.Embedder, chunkSize int) *Store {
	t.Helper()
	config := common.NewDefaultConfig().Retrieval
	if chunkSize > 0 {
		config.ChunkSize = chunkSize
	}
	store, err := New(context.Background(), storage, embedder, &config, arbor.NewNoOpLogger())
	require.NoError(t, err)
	return store
}

func TestCosineSimilarityBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(16)
		a := make([]float32, n)
		b := make([]float32, n)
		for j := range a {
			a[j] = rng.Float32()*2 - 1
			b[j] = rng.Float32()*2 - 1
		}
		score := CosineSimilarity(a, b)
		assert.GreaterOrEqual(t, score, -1.0)
		assert.LessOrEqual(t, score, 1.0)
		assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-6)
	}
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestAddDocumentPersistsOnce(t *testing.T) {
	storage := &memoryChunkStorage{}
	store := newTestStore(t, storage, &keywordEmbedder{}, 20)

	n, err := store.AddDocument(context.Background(), "Go is simple. Rust is strict. Cooking is fun.", "notes.md")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, storage.saves)
	require.Len(t, storage.chunks, 3)
	for _, chunk := range storage.chunks {
		assert.Equal(t, "notes.md", chunk.Source)
		assert.Equal(t, "fake:keywords", chunk.Provider)
		assert.True(t, strings.HasPrefix(chunk.ID, "chunk_"))
	}
}

func TestAddDocumentPartialFailure(t *testing.T) {
	storage := &memoryChunkStorage{}
	store := newTestStore(t, storage, &keywordEmbedder{failOn: "Rust"}, 20)

	n, err := store.AddDocument(context.Background(), "Go is simple. Rust is strict. Cooking is fun.", "notes.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, store.Count())
}

func TestAddDocumentAllFailuresReturnZero(t *testing.T) {
	embedder := &keywordEmbedder{err: interfaces.NewConfigurationError("openai_api_key")}
	store := newTestStore(t, &memoryChunkStorage{}, embedder, 20)

	n, err := store.AddDocument(context.Background(), "Go is simple. Rust is strict. Cooking is fun.", "notes.md")
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
	assert.Equal(t, 1, embedder.calls, "configuration errors stop the loop")
}

func TestAddDocumentPersistenceFailure(t *testing.T) {
	storage := &memoryChunkStorage{saveErr: errors.New("disk full")}
	store := newTestStore(t, storage, &keywordEmbedder{}, 0)

	n, err := store.AddDocument(context.Background(), "Go is simple.", "notes.md")
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, interfaces.ErrPersistence)
	assert.Equal(t, 1, store.Count())
}

func TestSearchFloorAndOrdering(t *testing.T) {
	storage := &memoryChunkStorage{chunks: []models.Chunk{
		{ID: "a", Text: "first", Vector: []float32{1, 0, 0}, Source: "s"},
		{ID: "b", Text: "second", Vector: []float32{1, 1, 0}, Source: "s"},
		{ID: "c", Text: "third", Vector: []float32{0, 0, 1}, Source: "s"},
		{ID: "d", Text: "fourth", Vector: []float32{1, 0, 0}, Source: "s"},
		{ID: "e", Text: "short", Vector: []float32{1, 0}, Source: "s"},
		{ID: "f", Text: "weak", Vector: []float32{0.4, 0, 0.92}, Source: "s"},
	}}
	store := newTestStore(t, storage, &keywordEmbedder{}, 0)

	results := store.Search(context.Background(), "go", 10)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID, "ties keep insertion order")
	assert.Equal(t, "d", results[1].ID)
	assert.Equal(t, "b", results[2].ID)
	for i, r := range results {
		assert.Greater(t, r.Score, 0.4)
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
	}

	limited := store.Search(context.Background(), "go", 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].ID)
}

func TestSearchEmptyAndFailedQuery(t *testing.T) {
	empty := newTestStore(t, &memoryChunkStorage{}, &keywordEmbedder{}, 0)
	assert.Empty(t, empty.Search(context.Background(), "go", 5))

	storage := &memoryChunkStorage{chunks: []models.Chunk{{ID: "a", Text: "x", Vector: []float32{1, 0, 0}}}}
	failing := newTestStore(t, storage, &keywordEmbedder{err: errors.New("down")}, 0)
	results := failing.Search(context.Background(), "go", 5)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRecentTopicsOrder(t *testing.T) {
	storage := &memoryChunkStorage{chunks: []models.Chunk{
		{ID: "1", Text: "A", Source: "a"},
		{ID: "2", Text: "B", Source: "b"},
		{ID: "3", Text: "C", Source: "c"},
	}}
	store := newTestStore(t, storage, &keywordEmbedder{}, 0)

	topics := store.RecentTopics(2)
	require.Len(t, topics, 2)
	assert.Equal(t, "C", topics[0].Title)
	assert.Equal(t, "B", topics[1].Title)
	assert.Equal(t, "c", topics[0].Source)

	assert.Len(t, store.RecentTopics(10), 3)
	assert.Empty(t, store.RecentTopics(0))
}

func TestTitleTruncation(t *testing.T) {
	long := strings.Repeat("word ", 40)
	title := Title(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(title), 84)
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.False(t, strings.Contains(title, "wo..."), "cut at a word boundary")

	assert.Equal(t, "short text", Title("short text"))

	noSpaces := strings.Repeat("x", 120)
	assert.LessOrEqual(t, utf8.RuneCountInString(Title(noSpaces)), 84)

	exact := strings.Repeat("a", 80) + " tail"
	assert.Equal(t, strings.Repeat("a", 80)+"...", Title(exact))
}

func TestBriefSummary(t *testing.T) {
	store := newTestStore(t, &memoryChunkStorage{}, &keywordEmbedder{}, 0)
	assert.Empty(t, store.BriefSummary())

	var chunks []models.Chunk
	for i := 0; i < 8; i++ {
		source := "a.pdf"
		if i%2 == 1 {
			source = "b.md"
		}
		chunks = append(chunks, models.Chunk{ID: string(rune('a' + i)), Text: strings.Repeat("z", 150), Source: source})
	}
	store = newTestStore(t, &memoryChunkStorage{chunks: chunks}, &keywordEmbedder{}, 0)

	summary := store.BriefSummary()
	assert.Contains(t, summary, "Sources: a.pdf, b.md")
	lines := strings.Split(summary, "\n")
	snippets := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "- ") {
			snippets++
			assert.Equal(t, 100, utf8.RuneCountInString(strings.TrimPrefix(line, "- ")))
		}
	}
	assert.Equal(t, 5, snippets)
}

func TestClearPersistsEmptyState(t *testing.T) {
	storage := &memoryChunkStorage{chunks: []models.Chunk{{ID: "1", Text: "A"}}}
	store := newTestStore(t, storage, &keywordEmbedder{}, 0)

	require.NoError(t, store.Clear(context.Background()))
	assert.Equal(t, 0, store.Count())
	assert.Empty(t, storage.chunks)
	assert.Equal(t, 1, storage.saves)
}

func TestScenarioKnowledgeBaseRetrieval(t *testing.T) {
	storage := &memoryChunkStorage{}
	store := newTestStore(t, storage, &keywordEmbedder{}, 30)

	n, err := store.AddDocument(context.Background(), "Go has goroutines. Rust has ownership. Cooking needs salt.", "kb.txt")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.NotEmpty(t, store.BriefSummary())

	results := store.Search(context.Background(), "Go", 5)
	assert.LessOrEqual(t, len(results), 5)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.4)
	}
}
