// Package pipeline runs the content pipeline: KB ingest, source collection,
// angle, optional research, writing, interlinking, thumbnail and publishing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/publisher"
	"github.com/ternarybob/scribe/internal/services/research"
	"github.com/ternarybob/scribe/internal/services/transform"
	"github.com/ternarybob/scribe/internal/services/writer"
)

// Pipeline modes
const (
	ModeBoth         = "both"
	ModeKBOnly       = "kb_only"
	ModeTriggersOnly = "triggers_only"
)

// Stage names reported in RunResult.Stage
const (
	StageModeSelect      = "mode_select"
	StageKBIngest        = "kb_ingest"
	StageTopicIdeate     = "topic_ideate"
	StageSourceCollect   = "source_collect"
	StageItemSelect      = "item_select"
	StageContextRetrieve = "context_retrieve"
	StageAngle           = "angle_generate"
	StageDeepResearch    = "deep_research"
	StageWrite           = "write"
	StageInterlink       = "interlink"
	StageThumbnail       = "thumbnail"
	StagePublish         = "publish"
	StageDone            = "done"
)

const (
	interlinkKeywords = 4
	interlinkLimit    = 5
	angleSourceChars  = 3000
)

// PersonaProvider returns the persona the article is written in
type PersonaProvider interface {
	Active(ctx context.Context) (*models.Persona, error)
}

// ArticleWriter turns a prompt input into a post-processed article
type ArticleWriter interface {
	Write(ctx context.Context, input writer.PromptInput) (*models.Article, error)
}

// Researcher runs the optional deep research rounds
type Researcher interface {
	Research(ctx context.Context, topic, background string) *research.Report
}

// Deps are the collaborators of one Pipeline. Researcher, Images and
// Personas may be nil.
type Deps struct {
	Config        *common.Config
	KnowledgeBase interfaces.KnowledgeBaseStorage
	Loader        interfaces.DocumentLoader
	Store         interfaces.VectorStore
	Sources       interfaces.SourceStorage
	Factory       interfaces.SourceFactory
	LLM           interfaces.FallbackCompletionService
	Writer        ArticleWriter
	Researcher    Researcher
	Personas      PersonaProvider
	Topics        interfaces.TopicStorage
	Images        interfaces.ImageProvider
	Publisher     interfaces.Publisher
	Logger        arbor.ILogger
}

// Pipeline executes one run at a time
type Pipeline struct {
	Deps
	running atomic.Bool
}

// New creates a pipeline from its collaborators
func New(deps Deps) *Pipeline {
	return &Pipeline{Deps: deps}
}

// run carries the values handed from stage to stage within one run
type run struct {
	stage     string // stage currently executing
	mode      string
	history   *models.TopicHistory
	topic     string
	primary   models.ContentItem
	items     []models.ContentItem
	kbContext string
	angle     string
	research  string
	article   *models.Article
	thumbnail string
	postID    string
}

// stageError records the stage a run was aborted at
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func abortAt(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

// Run executes one pipeline run. It never panics or returns an error: the
// outcome, including the stage an abort happened at, is in the result.
// A run started while another is executing is skipped.
func (p *Pipeline) Run(ctx context.Context) (result models.RunResult) {
	start := time.Now()
	result.StartedAt = start

	if !p.running.CompareAndSwap(false, true) {
		p.Logger.Warn().Msg("Pipeline run skipped, another run is in progress")
		result.Status = models.RunStatusSkipped
		result.Message = interfaces.ErrRunInProgress.Error()
		return result
	}
	defer p.running.Store(false)

	state := &run{stage: StageModeSelect}
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stage", state.stage).
				Str("stack", string(debug.Stack())).
				Msg("Pipeline run panicked")
			result.Status = models.RunStatusAborted
			result.Stage = state.stage
			result.Message = fmt.Sprintf("panic: %v", r)
		}
		result.Duration = time.Since(start)
	}()

	err := p.execute(ctx, state)
	result.Duration = time.Since(start)

	if err != nil {
		stage := state.stage
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
			err = se.err
		}
		p.Logger.Error().
			Err(err).
			Str("stage", stage).
			Str("mode", state.mode).
			Dur("duration", result.Duration).
			Msg("Pipeline run aborted")
		result.Status = models.RunStatusAborted
		result.Stage = stage
		result.Message = err.Error()
		return result
	}

	p.Logger.Info().
		Str("post_id", state.postID).
		Str("title", state.article.Title).
		Str("mode", state.mode).
		Dur("duration", result.Duration).
		Msg("Pipeline run published")

	result.Status = models.RunStatusPublished
	result.Stage = StageDone
	result.PostID = state.postID
	result.Title = state.article.Title
	return result
}

func (p *Pipeline) execute(ctx context.Context, state *run) error {
	state.mode = p.Config.Pipeline.Mode
	switch state.mode {
	case "":
		state.mode = ModeBoth
	case ModeBoth, ModeKBOnly, ModeTriggersOnly:
	default:
		return abortAt(StageModeSelect, interfaces.NewConfigurationError("pipeline.mode"))
	}
	state.history = p.loadHistory(ctx)

	p.Logger.Info().Str("mode", state.mode).Msg("Pipeline run started")

	if state.mode != ModeTriggersOnly {
		state.stage = StageKBIngest
		p.IngestKB(ctx)
	}

	if state.mode == ModeKBOnly {
		state.stage = StageTopicIdeate
		if err := p.ideate(ctx, state); err != nil {
			return err
		}
	} else {
		state.stage = StageSourceCollect
		items, err := p.CollectSources(ctx)
		if err != nil {
			return abortAt(StageSourceCollect, err)
		}
		if len(items) == 0 {
			return abortAt(StageSourceCollect, fmt.Errorf("%w: no items collected from sources", interfaces.ErrNotFound))
		}
		state.stage = StageItemSelect
		state.items = items
		state.primary = items[0]
		p.Logger.Info().
			Int("items", len(items)).
			Str("title", state.primary.Title).
			Str("source_type", string(state.primary.SourceType)).
			Msg("Primary item selected")

		if state.mode == ModeBoth {
			state.stage = StageContextRetrieve
			state.kbContext = p.retrieveContext(ctx, state.primary)
		}
	}

	state.stage = StageAngle
	angle, err := p.generateAngle(ctx, state)
	if err != nil {
		return abortAt(StageAngle, err)
	}
	state.angle = angle

	if p.Config.Pipeline.DeepResearch && p.Researcher != nil {
		state.stage = StageDeepResearch
		report := p.Researcher.Research(ctx, state.primary.Title, state.angle)
		state.research = report.String()
	}

	state.stage = StageWrite
	if err := sleep(ctx, common.ParseDurationOr(p.Config.Pipeline.WriteDelay, 0)); err != nil {
		return abortAt(StageWrite, err)
	}

	input := writer.NewInput(p.Config, p.activePersona(ctx), state.primary, state.items)
	input.Angle = state.angle
	input.KBContext = state.kbContext
	input.Research = state.research

	article, err := p.Writer.Write(ctx, input)
	if err != nil {
		return abortAt(StageWrite, err)
	}
	state.article = article

	if p.Config.Pipeline.Interlink {
		state.stage = StageInterlink
		p.interlink(ctx, state)
	}

	state.stage = StageThumbnail
	state.thumbnail = p.thumbnail(ctx, article.Title)

	state.stage = StagePublish
	postID, err := p.Publisher.Publish(ctx, models.PostInput{
		Title:        article.Title,
		SourceURL:    PublishURL(state.primary, time.Now()),
		SourceType:   state.primary.SourceType,
		HTMLContent:  article.HTML,
		ThumbnailURL: state.thumbnail,
		Category:     article.Category,
		Tags:         article.Tags,
	})
	if err != nil {
		return abortAt(StagePublish, err)
	}
	state.postID = postID

	topic := state.topic
	if topic == "" {
		topic = state.primary.Title
	}
	state.history.Add(topic)
	if err := p.Topics.SaveTopics(ctx, state.history); err != nil {
		p.Logger.Warn().Err(err).Msg("Failed to save topic history")
	}

	return nil
}

// IngestKB embeds every KB document not yet marked embedded. A document is
// marked only once at least one of its chunks embeds. Failures are logged
// and retried on the next run.
func (p *Pipeline) IngestKB(ctx context.Context) int {
	entries, err := p.KnowledgeBase.ListEntries(ctx)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("Failed to list KB documents")
		return 0
	}

	embedded := 0
	for _, entry := range entries {
		if entry.Embedded {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		text, err := p.Loader.Load(ctx, entry.Path)
		if err != nil {
			p.Logger.Warn().Err(err).Str("name", entry.Name).Msg("Failed to load KB document")
			continue
		}

		n, err := p.Store.AddDocument(ctx, text, entry.Name)
		if err != nil {
			p.Logger.Warn().Err(err).Str("name", entry.Name).Int("chunks", n).Msg("KB document embedding failed")
		}
		if n == 0 {
			continue
		}

		if err := p.KnowledgeBase.MarkEmbedded(ctx, entry.ID); err != nil {
			p.Logger.Warn().Err(err).Str("name", entry.Name).Msg("Failed to mark KB document embedded")
			continue
		}
		embedded++
	}

	if embedded > 0 {
		p.Logger.Info().Int("documents", embedded).Int("chunks", p.Store.Count()).Msg("KB ingest completed")
	}
	return embedded
}

// CollectSources fetches every configured source in order and accumulates
// their items. A failing source is logged and skipped. The configured
// source delay follows each fetch.
func (p *Pipeline) CollectSources(ctx context.Context) ([]models.ContentItem, error) {
	sources, err := p.Sources.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	delay := common.ParseDurationOr(p.Config.Pipeline.SourceDelay, 0)
	var items []models.ContentItem

	for _, source := range sources {
		adapter, err := p.Factory.Build(source)
		if err != nil {
			p.Logger.Warn().Err(err).Str("source_id", source.ID).Msg("Skipping source")
			continue
		}

		fetched, err := adapter.Fetch(ctx)
		if err != nil {
			event := p.Logger.Error()
			if interfaces.IsSoftFailure(err) {
				event = p.Logger.Warn()
			}
			event.
				Err(err).
				Str("source_id", source.ID).
				Str("type", string(source.Type)).
				Msg("Source fetch failed")
		} else {
			p.Logger.Debug().
				Str("source_id", source.ID).
				Int("items", len(fetched)).
				Msg("Source fetched")
			items = append(items, fetched...)
		}

		if err := sleep(ctx, delay); err != nil {
			return items, err
		}
	}

	return items, nil
}

// ideate picks the kb_only topic: one cheap AI call over the KB summary and
// the recently used topics, then a vector search for supporting chunks.
func (p *Pipeline) ideate(ctx context.Context, state *run) error {
	if p.Store.Count() == 0 {
		return abortAt(StageKBIngest, fmt.Errorf("%w: KB empty", interfaces.ErrNotFound))
	}

	summary := p.Store.BriefSummary()
	text, err := p.LLM.GenerateWithFallback(ctx, interfaces.CompletionRequest{
		Prompt:      topicPrompt(summary, state.history.Recent()),
		Temperature: p.Config.LLM.Temperature,
		MaxTokens:   p.Config.Pipeline.TopicMaxTokens,
	})
	if err != nil {
		return abortAt(StageTopicIdeate, err)
	}
	topic := firstLine(text)
	if topic == "" {
		return abortAt(StageTopicIdeate, fmt.Errorf("%w: no topic returned", interfaces.ErrEmptyInput))
	}
	state.topic = topic

	chunks := p.Store.Search(ctx, topic, p.Config.Retrieval.KBTopicLimit)
	content := joinChunks(chunks)
	if content == "" {
		content = summary
	}

	p.Logger.Info().Str("topic", topic).Int("chunks", len(chunks)).Msg("KB topic selected")

	state.primary = models.ContentItem{
		Title:      topic,
		Content:    content,
		SourceType: models.SourceTypeKBInternal,
		SourceURL:  "kb://topic?q=" + url.QueryEscape(topic),
	}
	state.items = []models.ContentItem{state.primary}
	return nil
}

func (p *Pipeline) retrieveContext(ctx context.Context, item models.ContentItem) string {
	if p.Store.Count() == 0 {
		return ""
	}
	chunks := p.Store.Search(ctx, item.Title, p.Config.Retrieval.ContextLimit)
	p.Logger.Debug().Int("chunks", len(chunks)).Msg("KB context retrieved")
	return joinChunks(chunks)
}

func (p *Pipeline) generateAngle(ctx context.Context, state *run) (string, error) {
	content := writer.Truncate(transform.CleanText(state.primary.Content), angleSourceChars)
	text, err := p.LLM.GenerateWithFallback(ctx, interfaces.CompletionRequest{
		Prompt:      anglePrompt(state.primary.Title, content, state.kbContext),
		Temperature: p.Config.LLM.Temperature,
		MaxTokens:   p.Config.Pipeline.AngleMaxTokens,
	})
	if err != nil {
		return "", err
	}
	angle := strings.TrimSpace(text)
	if angle == "" {
		return "", fmt.Errorf("%w: no angle returned", interfaces.ErrEmptyInput)
	}
	return angle, nil
}

func (p *Pipeline) activePersona(ctx context.Context) *models.Persona {
	if p.Personas == nil {
		return nil
	}
	persona, err := p.Personas.Active(ctx)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("No active persona, writing without a voice")
		return nil
	}
	return persona
}

// interlink appends a related reading list of up to five published posts
func (p *Pipeline) interlink(ctx context.Context, state *run) {
	keywords := publisher.Keywords(state.article.Title, interlinkKeywords)
	if len(keywords) == 0 {
		return
	}

	posts, err := p.Publisher.SearchPosts(ctx, strings.Join(keywords, " "), interlinkLimit)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("Interlink search failed")
		return
	}

	var related []*models.Post
	for _, post := range posts {
		if post.Link == "" || (state.primary.SourceURL != "" && post.SourceURL == state.primary.SourceURL) {
			continue
		}
		related = append(related, post)
	}
	if len(related) == 0 {
		return
	}

	state.article.HTML += RelatedReading(related)
	p.Logger.Debug().Int("links", len(related)).Msg("Related reading appended")
}

func (p *Pipeline) thumbnail(ctx context.Context, title string) string {
	if p.Images == nil {
		return ""
	}
	image, err := p.Images.FindImage(ctx, title)
	if err != nil {
		p.Logger.Warn().Err(err).Str("provider", p.Images.Name()).Msg("No thumbnail, publishing without one")
		return ""
	}
	return image.URL
}

func (p *Pipeline) loadHistory(ctx context.Context) *models.TopicHistory {
	history, err := p.Topics.LoadTopics(ctx)
	if err != nil || history == nil {
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			p.Logger.Warn().Err(err).Msg("Failed to load topic history")
		}
		history = models.NewTopicHistory(p.Config.Pipeline.TopicHistory)
	}
	history.SetCapacity(p.Config.Pipeline.TopicHistory)
	return history
}

// PublishURL returns the source URL a post is published under. Search-derived
// items get a timestamp fragment so each run creates a new post.
func PublishURL(item models.ContentItem, now time.Time) string {
	if item.SourceURL != "" && item.SourceType.IsSearchDerived() {
		return fmt.Sprintf("%s#%d", item.SourceURL, now.Unix())
	}
	return item.SourceURL
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
