package sources

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/transform"
)

// Factory builds the adapter for a source config
type Factory struct {
	maxItems    int
	maxResults  int
	search      interfaces.SearchProvider
	fetcher     *fetcher
	transformer *transform.Service
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithHTTPClient sets the HTTP client used by the rss and web adapters.
func WithHTTPClient(httpClient *http.Client) FactoryOption {
	return func(f *Factory) {
		f.fetcher.httpClient = httpClient
	}
}

// WithSearchProvider sets the engine used by web_search sources.
func WithSearchProvider(search interfaces.SearchProvider) FactoryOption {
	return func(f *Factory) {
		f.search = search
	}
}

// NewFactory creates a source adapter factory
func NewFactory(config *common.Config, logger arbor.ILogger, opts ...FactoryOption) *Factory {
	timeout := common.ParseDurationOr(config.Sources.RequestTimeout, DefaultTimeout)

	f := &Factory{
		maxItems:   config.Sources.MaxItems,
		maxResults: config.Search.MaxResults,
		fetcher: &fetcher{
			httpClient: &http.Client{Timeout: timeout},
			userAgent:  config.Sources.UserAgent,
			logger:     logger,
		},
		transformer: transform.NewService(logger),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Build returns the adapter for source
func (f *Factory) Build(source *models.SourceConfig) (interfaces.SourceAdapter, error) {
	if source == nil {
		return nil, fmt.Errorf("source is nil")
	}
	filter := NewKeywordFilter(source.MatchKeywords, source.NegativeKeywords)

	switch source.Type {
	case models.SourceKindRSS:
		return &RSSAdapter{
			feedURL:  source.URL,
			maxItems: f.maxItems,
			filter:   filter,
			fetcher:  f.fetcher,
		}, nil

	case models.SourceKindWeb:
		return &WebAdapter{
			pageURL:     source.URL,
			selector:    source.Selector,
			maxItems:    f.maxItems,
			filter:      filter,
			fetcher:     f.fetcher,
			transformer: f.transformer,
		}, nil

	case models.SourceKindWebSearch:
		if f.search == nil {
			return nil, &interfaces.ConfigurationError{Key: "search.provider", Message: "no search engine available for web_search sources"}
		}
		queries := splitQueries(source.URL)
		if len(queries) == 0 {
			return nil, &interfaces.ConfigurationError{Key: "source.url", Message: "web_search source has no queries"}
		}
		return &WebSearchAdapter{
			queries:    queries,
			maxResults: f.maxResults,
			filter:     filter,
			search:     f.search,
			fetcher:    f.fetcher,
		}, nil

	default:
		return nil, &interfaces.ConfigurationError{Key: "source.type", Message: fmt.Sprintf("unsupported source type %q", source.Type)}
	}
}
