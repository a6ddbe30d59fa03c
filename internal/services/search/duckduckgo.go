package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/scribe/internal/httpclient"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DefaultDuckDuckGoURL is the DuckDuckGo HTML endpoint
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no API key.
type DuckDuckGo struct {
	http *httpclient.Client
}

// NewDuckDuckGo creates a DuckDuckGo engine
func NewDuckDuckGo(opts ...ClientOption) *DuckDuckGo {
	return &DuckDuckGo{http: newClient("duckduckgo", DefaultDuckDuckGoURL, opts...)}
}

// Name returns the engine name
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search runs query and parses the organic results
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")

	body, err := d.http.Get(ctx, "/", params, map[string]string{
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "en-US,en;q=0.5",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: duckduckgo page: %v", interfaces.ErrParse, err)
	}

	result := &models.SearchResponse{Query: query, SourceType: models.SourceTypeGoogleStandardFallback}
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if limit > 0 && len(result.Results) >= limit {
			return false
		}
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" {
			return true
		}
		result.Results = append(result.Results, models.SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.Join(strings.Fields(sel.Find(".result__snippet").First().Text()), " "),
			Source:  domainOf(target),
			Rank:    len(result.Results) + 1,
		})
		return true
	})

	if len(result.Results) == 0 {
		return result, fmt.Errorf("%w: no results for %q", interfaces.ErrNotFound, query)
	}

	d.http.Logger().Info().Str("query", query).Int("results", len(result.Results)).Msg("DuckDuckGo search completed")
	return result, nil
}

// resolveRedirect extracts the target from DuckDuckGo's /l/?uddg= redirect links
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(parsed.Path, "/l/") {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}

// stripTags removes markup from a snippet
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
