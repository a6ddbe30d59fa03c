package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// WebSearchAdapter turns each configured query into one item. An AI answer
// becomes the item body with its references listed; otherwise the organic
// results are concatenated.
type WebSearchAdapter struct {
	queries    []string
	maxResults int
	filter     KeywordFilter
	search     interfaces.SearchProvider
	fetcher    *fetcher
}

// Fetch runs every query. A failing query is logged and skipped; an error
// is returned only when every query failed.
func (a *WebSearchAdapter) Fetch(ctx context.Context) ([]models.ContentItem, error) {
	logger := a.fetcher.logger

	var items []models.ContentItem
	var lastErr error
	for _, query := range a.queries {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		resp, err := a.search.Search(ctx, query, a.maxResults)
		if err != nil {
			lastErr = err
			if errors.Is(err, interfaces.ErrNotFound) {
				logger.Info().Str("query", query).Str("engine", a.search.Name()).Msg("Search returned no results")
			} else {
				logger.Warn().Err(err).Str("query", query).Str("engine", a.search.Name()).Msg("Search query failed")
			}
			continue
		}

		item, ok := searchItem(query, resp)
		if !ok {
			continue
		}
		if !a.filter.Allows(item) {
			logger.Debug().Str("query", query).Msg("Search item excluded by keyword filter")
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 && lastErr != nil && !errors.Is(lastErr, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("all search queries failed: %w", lastErr)
	}

	logger.Info().
		Str("engine", a.search.Name()).
		Int("queries", len(a.queries)).
		Int("items", len(items)).
		Msg("Web search collected")

	return items, nil
}

func searchItem(query string, resp *models.SearchResponse) (models.ContentItem, bool) {
	var body strings.Builder
	var firstURL string

	if answer := strings.TrimSpace(resp.Answer); answer != "" {
		body.WriteString(answer)
		if len(resp.References) > 0 {
			body.WriteString("\n\nReferences:\n")
			for _, ref := range resp.References {
				fmt.Fprintf(&body, "- %s (%s)\n", ref.Title, ref.URL)
			}
			firstURL = resp.References[0].URL
		}
	} else {
		if len(resp.Results) == 0 {
			return models.ContentItem{}, false
		}
		for i, r := range resp.Results {
			if i > 0 {
				body.WriteString("\n\n")
			}
			fmt.Fprintf(&body, "%s\n%s\n%s", r.Title, r.Snippet, r.URL)
		}
		firstURL = resp.Results[0].URL
	}

	sourceType := resp.SourceType
	if sourceType == "" {
		sourceType = models.SourceTypeGoogleStandardFallback
	}

	return models.ContentItem{
		Title:      query,
		Content:    strings.TrimSpace(body.String()),
		SourceType: sourceType,
		SourceURL:  "https://www.google.com/search?q=" + url.QueryEscape(query),
		Link:       firstURL,
	}, true
}

// splitQueries splits the comma-joined queries stored in a web_search source
func splitQueries(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if q := strings.TrimSpace(part); q != "" {
			out = append(out, q)
		}
	}
	return out
}
