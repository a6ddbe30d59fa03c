package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryConfig is the rate-limit retry policy applied to every vendor call.
// Other failures are returned at once so the fallback router can move on.
type RetryConfig struct {
	MaxRetries        int           // retries after the first attempt
	InitialBackoff    time.Duration // wait before the first retry when the vendor gives no hint
	MaxBackoff        time.Duration // cap on any single wait
	BackoffMultiplier float64       // growth per retry
}

const (
	DefaultMaxRetries        = 2
	DefaultInitialBackoff    = 10 * time.Second
	DefaultMaxBackoff        = 60 * time.Second
	DefaultBackoffMultiplier = 2.0

	// added to a vendor supplied delay so the retry lands after the window resets
	retryHintPadding = 2 * time.Second
)

// NewDefaultRetryConfig returns the default policy
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

var rateLimitMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate_limit",         // OpenAI, Groq and Anthropic error types
	"resource_exhausted", // Gemini
	"overloaded",         // Anthropic 529
}

// IsRateLimitError reports whether a vendor error asks the caller to slow down
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// retryHintRegex matches the delay hints vendors put in rate-limit errors:
// "Please retry in 12.5s" (Gemini), "Please try again in 20s" (OpenAI, Groq)
// and "retry-after: 30" (header text echoed by several SDKs).
var retryHintRegex = regexp.MustCompile(`(?i)(?:retry in|try again in|retrydelay[:\s]+|retry-after:?)\s*(\d+(?:\.\d+)?)\s*(ms|s)?`)

// ExtractRetryDelay returns the delay a vendor suggested, or 0
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryHintRegex.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	value, parseErr := strconv.ParseFloat(m[1], 64)
	if parseErr != nil {
		return 0
	}
	if strings.EqualFold(m[2], "ms") {
		return time.Duration(value * float64(time.Millisecond))
	}
	return time.Duration(value * float64(time.Second))
}

// CalculateBackoff returns the wait before retry number attempt (0-based).
// A vendor hint replaces InitialBackoff as the base; the result never
// exceeds MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, hint time.Duration) time.Duration {
	base := c.InitialBackoff
	if hint > 0 {
		base = hint + retryHintPadding
	}

	backoff := float64(base)
	for i := 0; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if time.Duration(backoff) > c.MaxBackoff {
		return c.MaxBackoff
	}
	return time.Duration(backoff)
}

var statusCodeRegex = regexp.MustCompile(`(?:status code:?|status|Error)\s+(\d{3})\b`)

// statusCodeFromError extracts an HTTP status code from an error message, or 0
func statusCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	m := statusCodeRegex.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}
