package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func TestPexels_FindImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		assert.Equal(t, "mountain lake", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"photos": [{"url": "https://www.pexels.com/photo/1", "photographer": "Ana",
			"src": {"large2x": "https://images.pexels.com/1-large2x.jpg", "large": "https://images.pexels.com/1.jpg"}}]}`))
	}))
	defer srv.Close()

	p := NewPexels("key", WithBaseURL(srv.URL), WithRateLimit(100))
	image, err := p.FindImage(context.Background(), " mountain lake ")
	require.NoError(t, err)
	assert.Equal(t, "https://images.pexels.com/1-large2x.jpg", image.URL)
	assert.Equal(t, "pexels", image.Source)
	assert.Equal(t, "Photo by Ana on Pexels", image.Attribution)
}

func TestPexels_NoResultsAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "boom" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "bad key"}`))
			return
		}
		_, _ = w.Write([]byte(`{"photos": []}`))
	}))
	defer srv.Close()

	p := NewPexels("key", WithBaseURL(srv.URL), WithRateLimit(100))
	_, err := p.FindImage(context.Background(), "nothing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = p.FindImage(context.Background(), "boom")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = p.FindImage(context.Background(), "  ")
	assert.ErrorIs(t, err, interfaces.ErrEmptyInput)
}

func TestOpenverse_SkipsMature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/", r.URL.Path)
		assert.Equal(t, "commercial", r.URL.Query().Get("license_type"))
		_, _ = w.Write([]byte(`{"results": [
			{"url": "https://example.com/mature.jpg", "mature": true},
			{"url": "https://example.com/ok.jpg", "title": "Lake", "creator": "Bo", "license": "by", "license_version": "4.0"}
		]}`))
	}))
	defer srv.Close()

	o := NewOpenverse(WithBaseURL(srv.URL), WithRateLimit(100))
	image, err := o.FindImage(context.Background(), "lake")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ok.jpg", image.URL)
	assert.Equal(t, `"Lake" by Bo (BY 4.0)`, image.Attribution)
}

type stubProvider struct {
	name  string
	image *models.Image
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FindImage(ctx context.Context, query string) (*models.Image, error) {
	s.calls++
	return s.image, s.err
}

func TestChain_FallsThrough(t *testing.T) {
	first := &stubProvider{name: "pexels", err: errors.New("quota")}
	second := &stubProvider{name: "openverse", image: &models.Image{URL: "https://example.com/x.jpg"}}
	chain := NewChain(arbor.NewNoOpLogger(), first, second)

	assert.Equal(t, "pexels+openverse", chain.Name())
	image, err := chain.FindImage(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x.jpg", image.URL)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(arbor.NewNoOpLogger(),
		&stubProvider{name: "a", err: errors.New("a down")},
		&stubProvider{name: "b", err: errors.New("b down")},
	)
	_, err := chain.FindImage(context.Background(), "query")
	assert.EqualError(t, err, "b down")

	_, err = NewChain(arbor.NewNoOpLogger()).FindImage(context.Background(), "query")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestAIGenerator_WritesFile(t *testing.T) {
	dir := t.TempDir()
	g := &AIGenerator{
		model:     DefaultImageModel,
		outputDir: dir,
		logger:    arbor.NewNoOpLogger(),
		generate: func(ctx context.Context, prompt string) ([]byte, string, error) {
			assert.Contains(t, prompt, "solar power")
			return []byte("\x89PNG fake"), "image/jpeg", nil
		},
	}

	image, err := g.FindImage(context.Background(), "solar power")
	require.NoError(t, err)
	assert.Equal(t, "imagen", image.Source)
	assert.Equal(t, "image/jpeg", image.MimeType)
	require.True(t, strings.HasPrefix(image.URL, "file://"))
	assert.True(t, strings.HasSuffix(image.URL, ".jpg"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAIGenerator_EmptyData(t *testing.T) {
	g := &AIGenerator{
		outputDir: t.TempDir(),
		logger:    arbor.NewNoOpLogger(),
		generate: func(ctx context.Context, prompt string) ([]byte, string, error) {
			return nil, "", nil
		},
	}
	_, err := g.FindImage(context.Background(), "anything")
	assert.ErrorIs(t, err, interfaces.ErrProvider)
}

func TestNewImageProvider_Modes(t *testing.T) {
	t.Setenv("PEXELS_API_KEY", "")
	ctx := context.Background()
	logger := arbor.NewNoOpLogger()

	config := common.NewDefaultConfig()
	config.Images.Mode = "none"
	provider, err := NewImageProvider(ctx, config, nil, logger)
	require.NoError(t, err)
	assert.Nil(t, provider)

	config.Images.Mode = "openverse"
	provider, err = NewImageProvider(ctx, config, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "openverse", provider.Name())

	config.Images.Mode = "stock"
	config.Images.PexelsAPIKey = ""
	_, err = NewImageProvider(ctx, config, nil, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	config.Images.Mode = "fallback"
	provider, err = NewImageProvider(ctx, config, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "openverse", provider.Name())

	config.Images.PexelsAPIKey = "key"
	provider, err = NewImageProvider(ctx, config, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "pexels+openverse", provider.Name())

	config.Images.Mode = "sketch"
	_, err = NewImageProvider(ctx, config, nil, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}
