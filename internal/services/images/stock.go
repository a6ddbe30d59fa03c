package images

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/scribe/internal/httpclient"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	// DefaultPexelsURL is the Pexels API root
	DefaultPexelsURL = "https://api.pexels.com/v1"

	// DefaultOpenverseURL is the Openverse API root
	DefaultOpenverseURL = "https://api.openverse.org/v1"
)

// Pexels searches stock photos
type Pexels struct {
	http   *httpclient.Client
	apiKey string
}

// NewPexels creates a Pexels provider
func NewPexels(apiKey string, opts ...ClientOption) *Pexels {
	return &Pexels{http: newClient("pexels", DefaultPexelsURL, opts...), apiKey: apiKey}
}

// Name returns the provider name
func (p *Pexels) Name() string {
	return "pexels"
}

// FindImage returns the first landscape photo matching query
func (p *Pexels) FindImage(ctx context.Context, query string) (*models.Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: image query is empty", interfaces.ErrEmptyInput)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")

	var resp struct {
		Photos []struct {
			URL          string `json:"url"`
			Photographer string `json:"photographer"`
			Alt          string `json:"alt"`
			Src          struct {
				Large2x   string `json:"large2x"`
				Large     string `json:"large"`
				Landscape string `json:"landscape"`
				Original  string `json:"original"`
			} `json:"src"`
		} `json:"photos"`
	}
	if err := p.http.GetJSON(ctx, "/search", params, map[string]string{"Authorization": p.apiKey}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Photos) == 0 {
		return nil, fmt.Errorf("%w: no pexels photo for %q", interfaces.ErrNotFound, query)
	}

	photo := resp.Photos[0]
	src := firstNonEmpty(photo.Src.Large2x, photo.Src.Landscape, photo.Src.Large, photo.Src.Original)
	if src == "" {
		return nil, fmt.Errorf("%w: pexels photo has no source url", interfaces.ErrNotFound)
	}

	image := &models.Image{URL: src, Source: p.Name()}
	if photo.Photographer != "" {
		image.Attribution = fmt.Sprintf("Photo by %s on Pexels", photo.Photographer)
	}

	p.http.Logger().Info().Str("query", query).Str("url", src).Msg("Pexels image found")
	return image, nil
}

// Openverse searches openly licensed images
type Openverse struct {
	http *httpclient.Client
}

// NewOpenverse creates an Openverse provider. The API works without a key.
func NewOpenverse(opts ...ClientOption) *Openverse {
	return &Openverse{http: newClient("openverse", DefaultOpenverseURL, opts...)}
}

// Name returns the provider name
func (o *Openverse) Name() string {
	return "openverse"
}

// FindImage returns the first commercially usable image matching query
func (o *Openverse) FindImage(ctx context.Context, query string) (*models.Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: image query is empty", interfaces.ErrEmptyInput)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("page_size", "5")
	params.Set("license_type", "commercial")
	params.Set("aspect_ratio", "wide")

	var resp struct {
		Results []struct {
			URL            string `json:"url"`
			Title          string `json:"title"`
			Creator        string `json:"creator"`
			License        string `json:"license"`
			LicenseVersion string `json:"license_version"`
			Mature         bool   `json:"mature"`
		} `json:"results"`
	}
	if err := o.http.GetJSON(ctx, "/images/", params, nil, &resp); err != nil {
		return nil, err
	}

	for _, result := range resp.Results {
		if result.Mature || result.URL == "" {
			continue
		}
		image := &models.Image{URL: result.URL, Source: o.Name()}
		if result.License != "" {
			license := strings.ToUpper(strings.TrimSpace(result.License + " " + result.LicenseVersion))
			image.Attribution = strings.TrimSpace(fmt.Sprintf("%q by %s (%s)", result.Title, firstNonEmpty(result.Creator, "unknown"), license))
		}
		o.http.Logger().Info().Str("query", query).Str("url", result.URL).Msg("Openverse image found")
		return image, nil
	}

	return nil, fmt.Errorf("%w: no openverse image for %q", interfaces.ErrNotFound, query)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
