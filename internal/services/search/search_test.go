package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func TestSerpAPIGoogleAIMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_ai_mode", r.URL.Query().Get("engine"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "go generics", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{
			"text_blocks": [
				{"type": "paragraph", "snippet": "Generics arrived in Go 1.18."},
				{"type": "list", "list": [{"title": "Type parameters", "snippet": "on functions and types"}]}
			],
			"references": [{"title": "Go blog", "link": "https://go.dev/blog/intro-generics", "snippet": "intro", "source": "go.dev", "index": 0}]
		}`))
	}))
	defer srv.Close()

	engine := NewSerpAPI("secret", ModeGoogleAIMode, WithBaseURL(srv.URL), WithRateLimit(100))
	resp, err := engine.Search(context.Background(), "go generics", 5)
	require.NoError(t, err)

	assert.Equal(t, models.SourceTypeGoogleAIMode, resp.SourceType)
	assert.Contains(t, resp.Answer, "Generics arrived in Go 1.18.")
	assert.Contains(t, resp.Answer, "- Type parameters on functions and types")
	require.Len(t, resp.References, 1)
	assert.Equal(t, "https://go.dev/blog/intro-generics", resp.References[0].URL)
}

func TestSerpAPIFallsBackToOrganic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		_, _ = w.Write([]byte(`{"organic_results": [
			{"position": 1, "title": "One", "link": "https://www.example.com/1", "snippet": "first"},
			{"position": 2, "title": "Two", "link": "https://example.org/2", "snippet": "second"},
			{"position": 3, "title": "Three", "link": "https://example.net/3", "snippet": "third"}
		]}`))
	}))
	defer srv.Close()

	engine := NewSerpAPI("secret", ModeGoogleAIOverview, WithBaseURL(srv.URL), WithRateLimit(100))
	resp, err := engine.Search(context.Background(), "query", 2)
	require.NoError(t, err)

	assert.Equal(t, models.SourceTypeGoogleStandardFallback, resp.SourceType)
	assert.Empty(t, resp.Answer)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "example.com", resp.Results[0].Source)
}

func TestSerpAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	engine := NewSerpAPI("bad", ModeGoogleStandard, WithBaseURL(srv.URL), WithRateLimit(100))
	_, err := engine.Search(context.Background(), "query", 5)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"web": {"results": [
			{"title": "Result", "url": "https://news.example.com/a", "description": "Some <strong>bold</strong> claim"}
		]}}`))
	}))
	defer srv.Close()

	engine := NewBrave("brave-key", WithBaseURL(srv.URL), WithRateLimit(100))
	resp, err := engine.Search(context.Background(), "claim", 3)
	require.NoError(t, err)

	assert.Equal(t, models.SourceTypeBraveSearch, resp.SourceType)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Some bold claim", resp.Results[0].Snippet)
	assert.Equal(t, "news.example.com", resp.Results[0].Source)
}

func TestBraveNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"web": {"results": []}}`))
	}))
	defer srv.Close()

	engine := NewBrave("k", WithBaseURL(srv.URL), WithRateLimit(100))
	_, err := engine.Search(context.Background(), "nothing", 3)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

const duckDuckGoPage = `<html><body>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpost&amp;rut=abc">Example   Post</a></h2>
  <a class="result__snippet" href="#">A   snippet about things.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://direct.example.org/page">Direct</a></h2>
  <a class="result__snippet" href="#">Direct snippet.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="/y.js?ad=1">Ad</a></h2>
</div>
</body></html>`

func TestDuckDuckGoParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "things", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(duckDuckGoPage))
	}))
	defer srv.Close()

	engine := NewDuckDuckGo(WithBaseURL(srv.URL), WithRateLimit(100))
	resp, err := engine.Search(context.Background(), "things", 5)
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://example.com/post", resp.Results[0].URL)
	assert.Equal(t, "Example   Post", resp.Results[0].Title)
	assert.Equal(t, "A snippet about things.", resp.Results[0].Snippet)
	assert.Equal(t, "https://direct.example.org/page", resp.Results[1].URL)
	assert.Equal(t, 2, resp.Results[1].Rank)
}

func TestNewSearchProvider(t *testing.T) {
	for _, env := range append(common.APIKeyEnvVars("serpapi_api_key"), common.APIKeyEnvVars("brave_api_key")...) {
		t.Setenv(env, "")
	}
	logger := arbor.NewNoOpLogger()

	config := common.NewDefaultConfig()
	provider, err := NewSearchProvider(context.Background(), config, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", provider.Name())

	config.Search.Provider = "serpapi"
	_, err = NewSearchProvider(context.Background(), config, nil, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	config.Search.SerpAPIKey = "k"
	config.Search.Mode = "bing_copilot"
	provider, err = NewSearchProvider(context.Background(), config, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "serpapi:bing_copilot", provider.Name())

	config.Search.Provider = "brave"
	_, err = NewSearchProvider(context.Background(), config, nil, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}
