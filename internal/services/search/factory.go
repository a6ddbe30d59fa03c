package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// NewSearchProvider creates the engine selected by config.Search.Provider.
// Supported providers:
//   - "serpapi": Google AI Mode, Bing Copilot, Google AI Overview or organic Google
//   - "brave": Brave Search API
//   - "duckduckgo": HTML results page, no key required (default)
func NewSearchProvider(ctx context.Context, config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.SearchProvider, error) {
	opts := []ClientOption{
		WithLogger(logger),
		WithRateLimit(config.Search.RateLimit),
		WithUserAgent(config.Sources.UserAgent),
	}

	provider := strings.ToLower(strings.TrimSpace(config.Search.Provider))
	switch provider {
	case "serpapi":
		apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "serpapi_api_key", config.Search.SerpAPIKey)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("provider", provider).Str("mode", config.Search.Mode).Msg("Initializing search provider")
		return NewSerpAPI(apiKey, Mode(config.Search.Mode), append(opts, WithBaseURL(config.Search.SerpAPIURL))...), nil

	case "brave":
		apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "brave_api_key", config.Search.BraveAPIKey)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("provider", provider).Msg("Initializing search provider")
		return NewBrave(apiKey, append(opts, WithBaseURL(config.Search.BraveURL))...), nil

	case "duckduckgo", "":
		logger.Info().Str("provider", "duckduckgo").Msg("Initializing search provider")
		return NewDuckDuckGo(append(opts, WithBaseURL(config.Search.DuckDuckGoURL))...), nil

	default:
		return nil, &interfaces.ConfigurationError{Key: "search.provider", Message: fmt.Sprintf("unsupported provider %q", provider)}
	}
}
