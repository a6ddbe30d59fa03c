// Package publisher hands finished articles to the site: a local badger post
// store or a WordPress site over its REST API.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/transform"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Local stores posts in badger and optionally renders each one to an HTML file
type Local struct {
	storage   interfaces.PostStorage
	outputDir string
	logger    arbor.ILogger
}

// NewLocal creates a local publisher. An empty outputDir disables HTML files.
func NewLocal(storage interfaces.PostStorage, outputDir string, logger arbor.ILogger) *Local {
	return &Local{
		storage:   storage,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Publish creates a post, or updates the post already published for the same
// source URL unless the source is search-derived.
func (p *Local) Publish(ctx context.Context, input models.PostInput) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	now := time.Now()
	post := &models.Post{ID: common.NewPostID(), CreatedAt: now}
	updated := false

	if input.SourceURL != "" && !input.SourceType.IsSearchDerived() {
		existing, err := p.storage.FindBySourceURL(ctx, input.SourceURL)
		switch {
		case err == nil:
			post = existing
			updated = true
		case !errors.Is(err, interfaces.ErrNotFound):
			return "", fmt.Errorf("failed to look up existing post: %w", err)
		}
	}

	post.Title = input.Title
	post.SourceURL = input.SourceURL
	post.SourceType = input.SourceType
	post.HTMLContent = input.HTMLContent
	post.ThumbnailURL = input.ThumbnailURL
	post.Category = input.Category
	post.Tags = input.Tags
	post.UpdatedAt = now

	if p.outputDir != "" {
		link, err := p.render(post)
		if err != nil {
			p.logger.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to write post file")
		} else {
			post.Link = link
		}
	}

	if err := p.storage.SavePost(ctx, post); err != nil {
		return "", err
	}

	p.logger.Info().
		Str("post_id", post.ID).
		Str("title", post.Title).
		Bool("updated", updated).
		Msg("Post published locally")

	return post.ID, nil
}

// FindBySourceURL returns the post published for sourceURL
func (p *Local) FindBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error) {
	return p.storage.FindBySourceURL(ctx, sourceURL)
}

// SearchPosts ranks posts by how many query keywords appear in their title
// (counted twice) and text.
func (p *Local) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	keywords := Keywords(query, 0)
	if len(keywords) == 0 {
		return nil, nil
	}

	posts, err := p.storage.ListPosts(ctx, 0)
	if err != nil {
		return nil, err
	}

	type scored struct {
		post  *models.Post
		score int
	}
	var matches []scored
	for _, post := range posts {
		title := strings.ToLower(post.Title)
		text := strings.ToLower(transform.CleanText(post.HTMLContent))
		score := 0
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				score += 2
			}
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{post: post, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	var out []*models.Post
	for _, m := range matches {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.post)
	}
	return out, nil
}

// render writes the post as a standalone HTML page and returns its file URL
func (p *Local) render(post *models.Post) (string, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", err
	}

	suffix := post.ID
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	path := filepath.Join(p.outputDir, Slug(post.Title, "post")+"-"+suffix+".html")

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(post.Title))
	if post.SourceURL != "" {
		fmt.Fprintf(&b, "<meta name=\"scribe:source\" content=\"%s\">\n", html.EscapeString(post.SourceURL))
	}
	b.WriteString("</head><body><article>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(post.Title))
	if post.ThumbnailURL != "" {
		fmt.Fprintf(&b, "<img class=\"thumbnail\" src=\"%s\" alt=\"\">\n", html.EscapeString(post.ThumbnailURL))
	}
	b.WriteString(post.HTMLContent)
	if post.Category != "" || len(post.Tags) > 0 {
		fmt.Fprintf(&b, "\n<footer><p>%s</p><p>%s</p></footer>",
			html.EscapeString(post.Category), html.EscapeString(strings.Join(post.Tags, ", ")))
	}
	b.WriteString("\n</article></body></html>\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return "file://" + filepath.ToSlash(absPath), nil
}

// Slug returns a URL-safe slug for title, falling back to fallback
func Slug(title, fallback string) string {
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	if slug == "" {
		return fallback
	}
	return slug
}

func validateInput(input models.PostInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: post title is required", interfaces.ErrEmptyInput)
	}
	if strings.TrimSpace(input.HTMLContent) == "" {
		return fmt.Errorf("%w: post content is required", interfaces.ErrEmptyInput)
	}
	return nil
}
