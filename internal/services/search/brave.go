package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ternarybob/scribe/internal/httpclient"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DefaultBraveURL is the Brave web search endpoint
const DefaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

// Brave searches through the Brave Search API
type Brave struct {
	http   *httpclient.Client
	apiKey string
}

// NewBrave creates a Brave engine
func NewBrave(apiKey string, opts ...ClientOption) *Brave {
	return &Brave{http: newClient("brave", DefaultBraveURL, opts...), apiKey: apiKey}
}

// Name returns the engine name
func (b *Brave) Name() string {
	return "brave"
}

// Search runs query and returns the web results
func (b *Brave) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("count", strconv.Itoa(limit))
	}

	var resp struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": b.apiKey,
	}
	if err := b.http.GetJSON(ctx, "", params, headers, &resp); err != nil {
		return nil, err
	}

	result := &models.SearchResponse{Query: query, SourceType: models.SourceTypeBraveSearch}
	for i, item := range resp.Web.Results {
		if limit > 0 && i >= limit {
			break
		}
		result.Results = append(result.Results, models.SearchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: stripTags(item.Description),
			Source:  domainOf(item.URL),
			Rank:    i + 1,
		})
	}

	if len(result.Results) == 0 {
		return result, fmt.Errorf("%w: no results for %q", interfaces.ErrNotFound, query)
	}

	b.http.Logger().Info().Str("query", query).Int("results", len(result.Results)).Msg("Brave search completed")
	return result, nil
}
