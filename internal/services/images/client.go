// Package images finds or generates article thumbnails.
package images

import (
	"time"

	"github.com/ternarybob/scribe/internal/httpclient"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2
)

// ClientOption configures a stock image client.
type ClientOption = httpclient.Option

// APIError is returned for a non-2xx image API response.
type APIError = httpclient.APIError

var (
	WithBaseURL   = httpclient.WithBaseURL
	WithLogger    = httpclient.WithLogger
	WithRateLimit = httpclient.WithRateLimit
)

func newClient(service, baseURL string, opts ...ClientOption) *httpclient.Client {
	defaults := []ClientOption{
		httpclient.WithTimeout(DefaultTimeout),
		httpclient.WithRateLimit(DefaultRateLimit),
	}
	return httpclient.New(service, baseURL, append(defaults, opts...)...)
}
