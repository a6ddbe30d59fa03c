package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/scribe/internal/httpclient"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DefaultSerpAPIURL is the SerpAPI search endpoint
const DefaultSerpAPIURL = "https://serpapi.com/search.json"

// Mode selects which SerpAPI engine answers the query
type Mode string

const (
	ModeGoogleAIMode     Mode = "google_ai_mode"
	ModeBingCopilot      Mode = "bing_copilot"
	ModeGoogleAIOverview Mode = "google_ai_overview"
	ModeGoogleStandard   Mode = "google_standard"
)

// SerpAPI searches through serpapi.com. AI modes return the engine's
// generated answer with its references; when no answer is produced the
// organic results are returned as google_standard_fallback.
type SerpAPI struct {
	http   *httpclient.Client
	apiKey string
	mode   Mode
}

// NewSerpAPI creates a SerpAPI engine
func NewSerpAPI(apiKey string, mode Mode, opts ...ClientOption) *SerpAPI {
	return &SerpAPI{http: newClient("serpapi", DefaultSerpAPIURL, opts...), apiKey: apiKey, mode: mode}
}

// Name returns the engine name
func (s *SerpAPI) Name() string {
	return "serpapi:" + string(s.mode)
}

type serpTextBlock struct {
	Type    string          `json:"type"`
	Snippet string          `json:"snippet"`
	Title   string          `json:"title"`
	List    []serpTextBlock `json:"list"`
}

type serpReference struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Index   int    `json:"index"`
}

type serpResponse struct {
	Error      string          `json:"error"`
	TextBlocks []serpTextBlock `json:"text_blocks"`
	References []serpReference `json:"references"`
	AIOverview *struct {
		TextBlocks []serpTextBlock `json:"text_blocks"`
		References []serpReference `json:"references"`
	} `json:"ai_overview"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Source   string `json:"source"`
	} `json:"organic_results"`
}

// Search runs query against the configured engine
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)

	switch s.mode {
	case ModeGoogleAIMode:
		params.Set("engine", "google_ai_mode")
	case ModeBingCopilot:
		params.Set("engine", "bing_copilot")
	default:
		params.Set("engine", "google")
		if limit > 0 {
			params.Set("num", strconv.Itoa(limit))
		}
	}

	var resp serpResponse
	if err := s.http.GetJSON(ctx, "", params, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", resp.Error)
	}

	result := &models.SearchResponse{Query: query}

	blocks, refs := resp.TextBlocks, resp.References
	if s.mode == ModeGoogleAIOverview && resp.AIOverview != nil {
		blocks, refs = resp.AIOverview.TextBlocks, resp.AIOverview.References
	}
	if s.mode != ModeGoogleStandard {
		result.Answer = renderTextBlocks(blocks)
		for _, ref := range refs {
			result.References = append(result.References, models.SearchResult{
				Title:   ref.Title,
				URL:     ref.Link,
				Snippet: ref.Snippet,
				Source:  ref.Source,
				Rank:    ref.Index,
			})
		}
	}

	for i, item := range resp.OrganicResults {
		if limit > 0 && len(result.Results) >= limit {
			break
		}
		rank := item.Position
		if rank == 0 {
			rank = i + 1
		}
		source := item.Source
		if source == "" {
			source = domainOf(item.Link)
		}
		result.Results = append(result.Results, models.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Source:  source,
			Rank:    rank,
		})
	}

	if result.Answer != "" {
		result.SourceType = models.SourceType(s.mode)
	} else {
		result.SourceType = models.SourceTypeGoogleStandardFallback
	}

	if result.Answer == "" && len(result.Results) == 0 {
		return result, fmt.Errorf("%w: no results for %q", interfaces.ErrNotFound, query)
	}

	s.http.Logger().Info().
		Str("query", query).
		Str("mode", string(s.mode)).
		Bool("answer", result.Answer != "").
		Int("results", len(result.Results)).
		Msg("SerpAPI search completed")

	return result, nil
}

// renderTextBlocks flattens SerpAPI answer blocks into plain text
func renderTextBlocks(blocks []serpTextBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		switch {
		case len(block.List) > 0:
			if block.Snippet != "" {
				b.WriteString(block.Snippet)
				b.WriteString("\n")
			}
			for _, item := range block.List {
				text := strings.TrimSpace(item.Title + " " + item.Snippet)
				if text != "" {
					b.WriteString("- ")
					b.WriteString(text)
					b.WriteString("\n")
				}
			}
			b.WriteString("\n")
		case block.Snippet != "":
			b.WriteString(block.Snippet)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(b.String())
}
