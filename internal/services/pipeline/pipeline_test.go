package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/documents"
	"github.com/ternarybob/scribe/internal/services/publisher"
	"github.com/ternarybob/scribe/internal/services/research"
	"github.com/ternarybob/scribe/internal/services/sources"
	"github.com/ternarybob/scribe/internal/services/vectorstore"
	"github.com/ternarybob/scribe/internal/services/writer"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Tech News</title>
    <item>
      <title>Golang 1.25 released</title>
      <link>https://news.example.com/go-125</link>
      <description>The Go team shipped a new release with faster builds.</description>
      <guid>go-125</guid>
    </item>
    <item>
      <title>Sponsored: best golang course</title>
      <link>https://news.example.com/ad</link>
      <description>Buy now and save.</description>
      <guid>ad</guid>
    </item>
  </channel>
</rss>`

// constantEmbedder places every text on the same direction, so every chunk
// scores 1.0 against every query. While failing is set every call fails the
// way an unreachable vendor does.
type constantEmbedder struct {
	failing atomic.Bool
}

func (e *constantEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.failing.Load() {
		return nil, interfaces.NewProviderError("fake", "constant", errors.New("service unavailable"))
	}
	return []float32{1, 0.5, 0.25}, nil
}

func (e *constantEmbedder) Name() string { return "fake:constant" }

// cannedResearcher returns a fixed report and records what it was asked
type cannedResearcher struct {
	report     *research.Report
	topic      string
	background string
}

func (r *cannedResearcher) Research(_ context.Context, topic, background string) *research.Report {
	r.topic, r.background = topic, background
	return r.report
}

// stubImages returns url, or err when set
type stubImages struct {
	url string
	err error
}

func (s stubImages) FindImage(context.Context, string) (*models.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Image{URL: s.url, Source: "stub"}, nil
}

func (s stubImages) Name() string { return "stub" }

type panickingWriter struct{}

func (panickingWriter) Write(context.Context, writer.PromptInput) (*models.Article, error) {
	panic("template exploded")
}

// recordingStore captures every search issued against the vector store
type recordingStore struct {
	interfaces.VectorStore
	mu       sync.Mutex
	queries  []string
	limits   []int
	lastHits []models.ScoredChunk
}

func (r *recordingStore) Search(ctx context.Context, query string, limit int) []models.ScoredChunk {
	hits := r.VectorStore.Search(ctx, query, limit)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	r.limits = append(r.limits, limit)
	r.lastHits = hits
	return hits
}

// scriptedLLM answers by prompt kind and records each prompt
type scriptedLLM struct {
	topic    string
	angle    string
	article  string
	angleErr error
	prompts  []string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, request interfaces.CompletionRequest) (string, error) {
	return s.GenerateWithFallback(ctx, request)
}

func (s *scriptedLLM) GenerateWithFallback(_ context.Context, request interfaces.CompletionRequest) (string, error) {
	s.prompts = append(s.prompts, request.Prompt)
	switch {
	case strings.Contains(request.Prompt, "Suggest exactly one new article topic"):
		return s.topic, nil
	case strings.Contains(request.Prompt, "editorial angle"):
		return s.angle, s.angleErr
	default:
		return s.article, nil
	}
}

type harness struct {
	config    *common.Config
	manager   interfaces.StorageManager
	embedder  *constantEmbedder
	store     *recordingStore
	llm       *scriptedLLM
	publisher *publisher.Local
	pipeline  *Pipeline
}

func newHarness(t *testing.T, mode string, chunkSize int) *harness {
	t.Helper()
	ctx := context.Background()
	logger := arbor.NewNoOpLogger()

	config := common.NewDefaultConfig()
	config.Pipeline.Mode = mode
	config.Pipeline.SourceDelay = "0s"
	config.Pipeline.WriteDelay = "0s"
	config.Pipeline.Interlink = false
	if chunkSize > 0 {
		config.Retrieval.ChunkSize = chunkSize
	}

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()}, config.Pipeline.TopicHistory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	embedder := &constantEmbedder{}
	vs, err := vectorstore.New(ctx, manager.ChunkStorage(), embedder, &config.Retrieval, logger)
	require.NoError(t, err)
	store := &recordingStore{VectorStore: vs}

	llm := &scriptedLLM{
		topic:   "X",
		angle:   "Why this matters for small teams.",
		article: "<h1>Generated article</h1><p>One.</p><p>Two.</p>",
	}
	local := publisher.NewLocal(manager.PostStorage(), t.TempDir(), logger)

	p := New(Deps{
		Config:        config,
		KnowledgeBase: manager.KnowledgeBaseStorage(),
		Loader:        documents.NewLoader(config, logger),
		Store:         store,
		Sources:       manager.SourceStorage(),
		Factory:       sources.NewFactory(config, logger),
		LLM:           llm,
		Writer:        writer.NewWriter(llm, config, logger),
		Topics:        manager.TopicStorage(),
		Publisher:     local,
		Logger:        logger,
	})

	return &harness{config: config, manager: manager, embedder: embedder, store: store, llm: llm, publisher: local, pipeline: p}
}

func (h *harness) addKBDocument(t *testing.T, name, text string) *models.KnowledgeBaseEntry {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	entry := &models.KnowledgeBaseEntry{ID: common.NewKnowledgeBaseID(), Name: name, Path: path, Date: time.Now()}
	require.NoError(t, h.manager.KnowledgeBaseStorage().SaveEntry(context.Background(), entry))
	return entry
}

func (h *harness) addSource(t *testing.T, source *models.SourceConfig) {
	t.Helper()
	source.ID = common.NewSourceID()
	source.CreatedAt = time.Now()
	require.NoError(t, h.manager.SourceStorage().SaveSource(context.Background(), source))
	time.Sleep(time.Millisecond)
}

func serveFeed(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRun_KBOnly(t *testing.T) {
	h := newHarness(t, ModeKBOnly, 16)
	ctx := context.Background()
	entry := h.addKBDocument(t, "notes.txt", "Alpha one here. Beta two here. Gamma three.")

	result := h.pipeline.Run(ctx)
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)
	assert.Equal(t, StageDone, result.Stage)
	assert.NotEmpty(t, result.PostID)

	// Ingest embedded three chunks and marked the document
	assert.Equal(t, 3, h.store.Count())
	stored, err := h.manager.KnowledgeBaseStorage().GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Embedded)

	assert.NotEmpty(t, h.store.BriefSummary())

	// The topic drives the KB search
	require.NotEmpty(t, h.store.queries)
	assert.Equal(t, "X", h.store.queries[0])
	assert.Equal(t, 5, h.store.limits[0])
	assert.LessOrEqual(t, len(h.store.lastHits), 5)
	require.NotEmpty(t, h.store.lastHits)
	for _, hit := range h.store.lastHits {
		assert.Greater(t, hit.Score, 0.4)
	}

	// Topic, angle and article calls, in order
	require.Len(t, h.llm.prompts, 3)
	assert.Contains(t, h.llm.prompts[0], "Sources: notes.txt")
	assert.Contains(t, h.llm.prompts[2], "Why this matters for small teams.")

	post, err := h.manager.PostStorage().GetPost(ctx, result.PostID)
	require.NoError(t, err)
	assert.Equal(t, "Generated article", post.Title)
	assert.Equal(t, models.SourceTypeKBInternal, post.SourceType)
	assert.True(t, strings.HasPrefix(post.SourceURL, "kb://topic?q=X#"), post.SourceURL)

	history, err := h.manager.TopicStorage().LoadTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, history.Recent())
}

func TestRun_KBOnlyRecentTopicsInPrompt(t *testing.T) {
	h := newHarness(t, ModeKBOnly, 0)
	h.addKBDocument(t, "notes.md", "Some knowledge worth writing about.")

	require.Equal(t, models.RunStatusPublished, h.pipeline.Run(context.Background()).Status)

	h.llm.prompts = nil
	h.llm.topic = "Y"
	require.Equal(t, models.RunStatusPublished, h.pipeline.Run(context.Background()).Status)
	require.NotEmpty(t, h.llm.prompts)
	assert.Contains(t, h.llm.prompts[0], "Recently covered, do not repeat\n- X")
}

func TestRun_KBOnlyEmptyKB(t *testing.T) {
	h := newHarness(t, ModeKBOnly, 0)

	result := h.pipeline.Run(context.Background())
	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Equal(t, StageKBIngest, result.Stage)
	assert.Contains(t, result.Message, "KB empty")
	assert.Empty(t, h.llm.prompts)
}

func TestCollectSources_TriggersOnly(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)

	h.addSource(t, &models.SourceConfig{
		Type:             models.SourceKindRSS,
		URL:              feed.URL,
		MatchKeywords:    "golang",
		NegativeKeywords: "sponsored",
	})

	items, err := h.pipeline.CollectSources(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Golang 1.25 released", items[0].Title)
}

func TestCollectSources_FailingSourceSkipped(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	broken := serveFeed(t, http.StatusInternalServerError, "oops")
	feed := serveFeed(t, http.StatusOK, rssFeed)

	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: broken.URL})
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL})

	items, err := h.pipeline.CollectSources(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRun_TriggersOnly(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL, NegativeKeywords: "sponsored"})

	// A KB document must not be ingested in this mode
	entry := h.addKBDocument(t, "notes.txt", "Unused knowledge.")

	result := h.pipeline.Run(context.Background())
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)

	post, err := h.manager.PostStorage().GetPost(context.Background(), result.PostID)
	require.NoError(t, err)
	assert.Equal(t, "https://news.example.com/go-125", post.SourceURL)
	assert.Equal(t, models.SourceTypeRSS, post.SourceType)

	stored, err := h.manager.KnowledgeBaseStorage().GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.False(t, stored.Embedded)
	assert.Empty(t, h.store.queries)

	// Same source URL updates the existing post
	again := h.pipeline.Run(context.Background())
	require.Equal(t, models.RunStatusPublished, again.Status, again.Message)
	assert.Equal(t, result.PostID, again.PostID)
}

func TestRun_BothRetrievesContext(t *testing.T) {
	h := newHarness(t, ModeBoth, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL, NegativeKeywords: "sponsored"})
	h.addKBDocument(t, "notes.txt", "Our team migrated every service to Go last year.")

	result := h.pipeline.Run(context.Background())
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)

	require.Len(t, h.store.queries, 1)
	assert.Equal(t, "Golang 1.25 released", h.store.queries[0])
	assert.Equal(t, 3, h.store.limits[0])
	require.Len(t, h.llm.prompts, 2)
	assert.Contains(t, h.llm.prompts[0], "Our team migrated every service to Go last year.")
}

func TestRun_NoItemsAborts(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)

	result := h.pipeline.Run(context.Background())
	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Equal(t, StageSourceCollect, result.Stage)
}

func TestRun_AngleFailureAborts(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL})
	h.llm.angleErr = interfaces.NewProviderError("openai", "gpt-4o-mini", errors.New("quota exceeded"))

	result := h.pipeline.Run(context.Background())
	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Equal(t, StageAngle, result.Stage)
	assert.Contains(t, result.Message, "quota exceeded")

	posts, err := h.manager.PostStorage().ListPosts(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestRun_WriteFailureAborts(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL})
	h.llm.article = "   "

	result := h.pipeline.Run(context.Background())
	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Equal(t, StageWrite, result.Stage)
}

func TestRun_SkippedWhileRunning(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	h.pipeline.running.Store(true)

	result := h.pipeline.Run(context.Background())
	assert.Equal(t, models.RunStatusSkipped, result.Status)
	assert.Equal(t, interfaces.ErrRunInProgress.Error(), result.Message)
}

func TestRun_Interlink(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	h.config.Pipeline.Interlink = true
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL, NegativeKeywords: "sponsored"})

	_, err := h.publisher.Publish(context.Background(), models.PostInput{
		Title:       "Golang release tooling",
		SourceURL:   "https://older.example.com/tooling",
		SourceType:  models.SourceTypeRSS,
		HTMLContent: "<p>Older post.</p>",
	})
	require.NoError(t, err)

	h.llm.article = "<h1>Golang release notes explained</h1><p>One.</p><p>Two.</p>"
	result := h.pipeline.Run(context.Background())
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)

	post, err := h.manager.PostStorage().GetPost(context.Background(), result.PostID)
	require.NoError(t, err)
	assert.Contains(t, post.HTMLContent, "<h3>Related Reading</h3>")
	assert.Contains(t, post.HTMLContent, ">Golang release tooling</a></li>")
}

func TestRun_KBIngestRetriedAfterEmbeddingOutage(t *testing.T) {
	h := newHarness(t, ModeKBOnly, 0)
	ctx := context.Background()
	entry := h.addKBDocument(t, "notes.txt", "Knowledge that cannot be embedded yet.")
	h.embedder.failing.Store(true)

	result := h.pipeline.Run(ctx)
	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Equal(t, StageKBIngest, result.Stage)
	assert.Equal(t, 0, h.store.Count())

	stored, err := h.manager.KnowledgeBaseStorage().GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, stored.Embedded)

	// The next run picks the document up again
	h.embedder.failing.Store(false)
	result = h.pipeline.Run(ctx)
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)
	assert.Equal(t, 1, h.store.Count())

	stored, err = h.manager.KnowledgeBaseStorage().GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Embedded)
}

func TestRun_DeepResearchInWriterPrompt(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	h.config.Pipeline.DeepResearch = true
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL, NegativeKeywords: "sponsored"})

	researcher := &cannedResearcher{report: &research.Report{
		Topic: "Golang 1.25 released",
		Rounds: [2]research.Round{{
			Queries:  []string{"go 1.25 build speed"},
			Findings: []research.Finding{{Query: "go 1.25 build speed", Summary: "Builds are 12% faster."}},
		}},
	}}
	h.pipeline.Researcher = researcher

	result := h.pipeline.Run(context.Background())
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)

	assert.Equal(t, "Golang 1.25 released", researcher.topic)
	assert.Equal(t, "Why this matters for small teams.", researcher.background)

	require.Len(t, h.llm.prompts, 2)
	articlePrompt := h.llm.prompts[1]
	assert.Contains(t, articlePrompt, "## Deep Research Findings")
	assert.Contains(t, articlePrompt, "Builds are 12% faster.")
}

func TestRun_EmptyResearchStillPublishes(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	h.config.Pipeline.DeepResearch = true
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL, NegativeKeywords: "sponsored"})
	h.pipeline.Researcher = &cannedResearcher{report: &research.Report{Topic: "Golang 1.25 released"}}

	result := h.pipeline.Run(context.Background())
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)
	require.Len(t, h.llm.prompts, 2)
	assert.NotContains(t, h.llm.prompts[1], "Deep Research Findings")
}

func TestRun_Thumbnail(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL, NegativeKeywords: "sponsored"})
	ctx := context.Background()

	h.pipeline.Images = stubImages{url: "https://images.example.com/go.jpg"}
	result := h.pipeline.Run(ctx)
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)
	post, err := h.manager.PostStorage().GetPost(ctx, result.PostID)
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/go.jpg", post.ThumbnailURL)

	// A failing provider publishes without a thumbnail
	h.pipeline.Images = stubImages{err: interfaces.NewProviderError("pexels", "", errors.New("rate limited"))}
	result = h.pipeline.Run(ctx)
	require.Equal(t, models.RunStatusPublished, result.Status, result.Message)
	post, err = h.manager.PostStorage().GetPost(ctx, result.PostID)
	require.NoError(t, err)
	assert.Empty(t, post.ThumbnailURL)
}

func TestRun_PanicReportsStage(t *testing.T) {
	h := newHarness(t, ModeTriggersOnly, 0)
	feed := serveFeed(t, http.StatusOK, rssFeed)
	h.addSource(t, &models.SourceConfig{Type: models.SourceKindRSS, URL: feed.URL})
	h.pipeline.Writer = panickingWriter{}

	result := h.pipeline.Run(context.Background())
	assert.Equal(t, models.RunStatusAborted, result.Status)
	assert.Equal(t, StageWrite, result.Stage)
	assert.Contains(t, result.Message, "template exploded")

	// The run guard was released
	assert.NotEqual(t, models.RunStatusSkipped, h.pipeline.Run(context.Background()).Status)
}

func TestPublishURL(t *testing.T) {
	now := time.Unix(1700000000, 0)

	item := models.ContentItem{SourceURL: "https://www.google.com/search?q=go", SourceType: models.SourceTypeBraveSearch}
	assert.Equal(t, "https://www.google.com/search?q=go#1700000000", PublishURL(item, now))

	item = models.ContentItem{SourceURL: "https://news.example.com/a", SourceType: models.SourceTypeRSS}
	assert.Equal(t, "https://news.example.com/a", PublishURL(item, now))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Edge caching for small blogs", firstLine("\n1. \"Edge caching for small blogs\"\n2. Other"))
	assert.Equal(t, "2025 trends in Go tooling", firstLine("Topic: 2025 trends in Go tooling"))
	assert.Equal(t, "", firstLine("  \n "))
}

func TestRelatedReading(t *testing.T) {
	out := RelatedReading([]*models.Post{{Title: "A & B", Link: "https://blog.example.com/a"}})
	assert.Equal(t, "\n<h3>Related Reading</h3>\n<ul>\n<li><a href=\"https://blog.example.com/a\">A &amp; B</a></li>\n</ul>", out)
}
