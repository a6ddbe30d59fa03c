// Package search runs web searches for web_search sources and deep research.
package search

import (
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/scribe/internal/httpclient"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 1

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// ClientOption configures an engine client.
type ClientOption = httpclient.Option

// APIError is returned for a non-2xx engine response.
type APIError = httpclient.APIError

var (
	WithBaseURL   = httpclient.WithBaseURL
	WithLogger    = httpclient.WithLogger
	WithRateLimit = httpclient.WithRateLimit
	WithUserAgent = httpclient.WithUserAgent
)

func newClient(service, baseURL string, opts ...ClientOption) *httpclient.Client {
	defaults := []ClientOption{
		httpclient.WithTimeout(DefaultTimeout),
		httpclient.WithRateLimit(DefaultRateLimit),
		httpclient.WithUserAgent(defaultUserAgent),
	}
	return httpclient.New(service, baseURL, append(defaults, opts...)...)
}

// domainOf returns the host of a URL without a leading "www."
func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
