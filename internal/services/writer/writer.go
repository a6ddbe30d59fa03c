package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Writer generates articles through the completion service
type Writer struct {
	llm    interfaces.FallbackCompletionService
	config *common.Config
	logger arbor.ILogger
}

// NewWriter creates a new article writer
func NewWriter(llm interfaces.FallbackCompletionService, config *common.Config, logger arbor.ILogger) *Writer {
	return &Writer{
		llm:    llm,
		config: config,
		logger: logger,
	}
}

// NewInput fills the configured writer settings into a prompt input
func NewInput(config *common.Config, persona *models.Persona, primary models.ContentItem, sources []models.ContentItem) PromptInput {
	return PromptInput{
		Persona:      persona,
		StyleGuide:   config.Writer.StyleGuide,
		Language:     config.Writer.Language,
		MinWords:     config.Writer.MinWords,
		Categories:   config.Writer.Categories,
		Primary:      primary,
		Sources:      sources,
		ExcerptChars: config.Pipeline.SourceExcerptChars,
		MaxExcerpts:  config.Pipeline.MaxSourceExcerpts,
	}
}

// Write requests the article and post-processes the result. An error means
// no usable text came back after every fallback attempt.
func (w *Writer) Write(ctx context.Context, input PromptInput) (*models.Article, error) {
	prompt := BuildPrompt(input)
	started := time.Now()

	raw, err := w.llm.GenerateWithFallback(ctx, interfaces.CompletionRequest{
		Prompt:      prompt,
		Temperature: w.config.LLM.Temperature,
		MaxTokens:   w.config.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("article generation failed: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: article generation returned no text", interfaces.ErrEmptyInput)
	}

	article, err := PostProcess(raw, input.Categories)
	if err != nil {
		return nil, err
	}
	if article.Title == "" {
		article.Title = input.Primary.Title
	}

	w.logger.Info().
		Str("title", article.Title).
		Str("category", article.Category).
		Int("tags", len(article.Tags)).
		Bool("chart", article.Chart != nil).
		Bool("media", article.Media != nil).
		Int("prompt_chars", len(prompt)).
		Dur("duration", time.Since(started)).
		Msg("Article written")

	return article, nil
}
