package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	// SourceURLMetaKey is the post meta field holding the article's source URL
	SourceURLMetaKey = "scribe_source_url"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	postsPath      = "/wp-json/wp/v2/posts"
	mediaPath      = "/wp-json/wp/v2/media"
	categoriesPath = "/wp-json/wp/v2/categories"
	tagsPath       = "/wp-json/wp/v2/tags"
	maxMediaBytes  = 20 << 20
	allStatuses    = "publish,future,draft,pending,private"
)

// WordPress publishes through the WordPress REST API with an application password
type WordPress struct {
	baseURL    string
	username   string
	password   string
	status     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// WordPressOption configures a WordPress publisher.
type WordPressOption func(*WordPress)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) WordPressOption {
	return func(w *WordPress) {
		w.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) WordPressOption {
	return func(w *WordPress) {
		w.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) WordPressOption {
	return func(w *WordPress) {
		if requestsPerSecond > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewWordPress creates a WordPress publisher
func NewWordPress(config common.WordPressConfig, opts ...WordPressOption) (*WordPress, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, interfaces.NewConfigurationError("publisher.wordpress.base_url")
	}
	if config.Username == "" || config.AppPassword == "" {
		return nil, interfaces.NewConfigurationError("publisher.wordpress.app_password")
	}

	status := config.Status
	if status == "" {
		status = "draft"
	}

	w := &WordPress{
		baseURL:  baseURL,
		username: config.Username,
		password: strings.ReplaceAll(config.AppPassword, " ", ""),
		status:   status,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// APIError represents a non-2xx response from WordPress.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("wordpress API error: %s: %s (status %d, endpoint: %s)", e.Code, e.Message, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("wordpress API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

// wpPost is a post as returned by the REST API. Meta is an object on sites
// that register it and an empty array otherwise.
type wpPost struct {
	ID       int             `json:"id"`
	Link     string          `json:"link"`
	Date     string          `json:"date_gmt"`
	Modified string          `json:"modified_gmt"`
	Title    wpRendered      `json:"title"`
	Content  wpRendered      `json:"content"`
	Meta     json.RawMessage `json:"meta"`
}

func (p wpPost) toModel() *models.Post {
	post := &models.Post{
		ID:          strconv.Itoa(p.ID),
		Title:       p.Title.Rendered,
		HTMLContent: p.Content.Rendered,
		Link:        p.Link,
	}
	var meta map[string]any
	if json.Unmarshal(p.Meta, &meta) == nil {
		if src, ok := meta[SourceURLMetaKey].(string); ok {
			post.SourceURL = src
		}
	}
	if t, err := time.Parse("2006-01-02T15:04:05", p.Date); err == nil {
		post.CreatedAt = t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", p.Modified); err == nil {
		post.UpdatedAt = t
	}
	return post
}

// Publish creates a post, or updates the post already published for the same
// source URL unless the source is search-derived.
func (w *WordPress) Publish(ctx context.Context, input models.PostInput) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	body := map[string]any{
		"title":   input.Title,
		"content": input.HTMLContent,
		"status":  w.status,
	}
	if input.SourceURL != "" {
		body["meta"] = map[string]string{SourceURLMetaKey: input.SourceURL}
	}
	if input.Category != "" {
		if id, err := w.termID(ctx, categoriesPath, input.Category, false); err == nil {
			body["categories"] = []int{id}
		} else {
			w.logger.Warn().Err(err).Str("category", input.Category).Msg("Category not resolved")
		}
	}
	if len(input.Tags) > 0 {
		var tagIDs []int
		for _, tag := range input.Tags {
			id, err := w.termID(ctx, tagsPath, tag, true)
			if err != nil {
				w.logger.Warn().Err(err).Str("tag", tag).Msg("Tag not resolved")
				continue
			}
			tagIDs = append(tagIDs, id)
		}
		if len(tagIDs) > 0 {
			body["tags"] = tagIDs
		}
	}
	if input.ThumbnailURL != "" {
		if mediaID, err := w.uploadMedia(ctx, input.ThumbnailURL, input.Title); err == nil {
			body["featured_media"] = mediaID
		} else {
			w.logger.Warn().Err(err).Str("thumbnail", input.ThumbnailURL).Msg("Thumbnail upload failed")
		}
	}

	endpoint := postsPath
	if input.SourceURL != "" && !input.SourceType.IsSearchDerived() {
		existing, err := w.FindBySourceURL(ctx, input.SourceURL)
		switch {
		case err == nil:
			endpoint = postsPath + "/" + existing.ID
		case !errors.Is(err, interfaces.ErrNotFound):
			return "", fmt.Errorf("failed to look up existing post: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode post: %w", err)
	}

	var created wpPost
	if err := w.do(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(payload), "application/json", nil, &created); err != nil {
		return "", err
	}

	id := strconv.Itoa(created.ID)
	w.logger.Info().
		Str("post_id", id).
		Str("link", created.Link).
		Bool("updated", endpoint != postsPath).
		Msg("Post published to WordPress")

	return id, nil
}

// FindBySourceURL looks the post up by its source URL meta field
func (w *WordPress) FindBySourceURL(ctx context.Context, sourceURL string) (*models.Post, error) {
	params := url.Values{}
	params.Set("meta_key", SourceURLMetaKey)
	params.Set("meta_value", sourceURL)
	params.Set("status", allStatuses)
	params.Set("per_page", "1")
	params.Set("context", "edit")

	var posts []wpPost
	if err := w.do(ctx, http.MethodGet, postsPath, params, nil, "", nil, &posts); err != nil {
		return nil, err
	}

	for _, p := range posts {
		post := p.toModel()
		// Sites without meta query support ignore meta_key and return recent posts
		if post.SourceURL == sourceURL {
			return post, nil
		}
	}
	return nil, fmt.Errorf("%w: post for %s", interfaces.ErrNotFound, sourceURL)
}

// SearchPosts runs a WordPress full-text search over published posts
func (w *WordPress) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("_fields", "id,link,title,date_gmt,modified_gmt")

	var posts []wpPost
	if err := w.do(ctx, http.MethodGet, postsPath, params, nil, "", nil, &posts); err != nil {
		return nil, err
	}

	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.toModel())
	}
	return out, nil
}

// termID resolves a category or tag by name, creating missing tags
func (w *WordPress) termID(ctx context.Context, termPath, name string, create bool) (int, error) {
	params := url.Values{}
	params.Set("search", name)
	params.Set("per_page", "20")

	var terms []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := w.do(ctx, http.MethodGet, termPath, params, nil, "", nil, &terms); err != nil {
		return 0, err
	}
	for _, term := range terms {
		if strings.EqualFold(term.Name, name) {
			return term.ID, nil
		}
	}
	if !create {
		return 0, fmt.Errorf("%w: term %q", interfaces.ErrNotFound, name)
	}

	payload, _ := json.Marshal(map[string]string{"name": name})
	var term struct {
		ID int `json:"id"`
	}
	if err := w.do(ctx, http.MethodPost, termPath, nil, bytes.NewReader(payload), "application/json", nil, &term); err != nil {
		return 0, err
	}
	return term.ID, nil
}

// uploadMedia uploads a remote or local image to the media library
func (w *WordPress) uploadMedia(ctx context.Context, imageURL, title string) (int, error) {
	data, contentType, name, err := w.readImage(ctx, imageURL)
	if err != nil {
		return 0, err
	}

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, name),
	}
	var media struct {
		ID int `json:"id"`
	}
	if err := w.do(ctx, http.MethodPost, mediaPath, nil, bytes.NewReader(data), contentType, headers, &media); err != nil {
		return 0, err
	}

	if title != "" {
		payload, _ := json.Marshal(map[string]string{"alt_text": title})
		_ = w.do(ctx, http.MethodPost, mediaPath+"/"+strconv.Itoa(media.ID), nil, bytes.NewReader(payload), "application/json", nil, nil)
	}
	return media.ID, nil
}

func (w *WordPress) readImage(ctx context.Context, imageURL string) ([]byte, string, string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return nil, "", "", fmt.Errorf("invalid image url: %w", err)
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = "thumbnail.jpg"
	}
	contentType := mime.TypeByExtension(path.Ext(name))

	var data []byte
	if parsed.Scheme == "file" {
		data, err = os.ReadFile(parsed.Path)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to read image: %w", err)
		}
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to create image request: %w", err)
		}
		resp, err := w.httpClient.Do(req)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to download image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", "", fmt.Errorf("image download returned status %d", resp.StatusCode)
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to read image: %w", err)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, name, nil
}

// do performs an authenticated, rate-limited request and decodes the JSON response
func (w *WordPress) do(ctx context.Context, method, apiPath string, params url.Values, body io.Reader, contentType string, headers map[string]string, result interface{}) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	endpoint := w.baseURL + apiPath
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(w.username, w.password)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w.logger.Debug().Str("method", method).Str("url", endpoint).Msg("WordPress request")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint}
		var wpErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &wpErr) == nil && wpErr.Message != "" {
			apiErr.Code = wpErr.Code
			apiErr.Message = wpErr.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
			if len(apiErr.Message) > 200 {
				apiErr.Message = apiErr.Message[:200]
			}
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
