package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Route is a substitute provider and model
type Route struct {
	Provider ProviderKind
	Model    string
}

// fallbackChain is the priority list tried when a model containing one of
// the markers fails
type fallbackChain struct {
	markers []string
	chain   []ProviderKind
}

var fallbackChains = []fallbackChain{
	{markers: []string{"gemini"}, chain: []ProviderKind{ProviderGroq, ProviderOpenAI, ProviderAnthropic}},
	{markers: []string{"gpt"}, chain: []ProviderKind{ProviderAnthropic, ProviderGroq, ProviderGemini}},
	{markers: []string{"claude"}, chain: []ProviderKind{ProviderOpenAI, ProviderGroq}},
	{markers: []string{"llama", "mixtral"}, chain: []ProviderKind{ProviderGemini, ProviderOpenAI}},
}

// Router picks a substitute route after a failure. It holds no state
// between calls: the answer is a pure function of configuration and the
// failed model name.
type Router struct {
	enabled    bool
	vendors    map[ProviderKind]common.VendorConfig
	configured func(ProviderKind) bool
}

// NewRouter creates a router. A disabled router never offers a route.
func NewRouter(enabled bool, vendors map[ProviderKind]common.VendorConfig, configured func(ProviderKind) bool) *Router {
	return &Router{enabled: enabled, vendors: vendors, configured: configured}
}

// Enabled reports whether smart fallback is switched on
func (r *Router) Enabled() bool {
	return r.enabled
}

// Fallback returns the route to try after failedModel failed
func (r *Router) Fallback(failedModel string) (Route, bool) {
	if !r.enabled {
		return Route{}, false
	}

	failed := strings.ToLower(failedModel)
	for _, fc := range fallbackChains {
		if !containsAny(failed, fc.markers) {
			continue
		}
		for _, kind := range fc.chain {
			if r.configured(kind) {
				return r.route(kind), true
			}
		}
		break
	}

	// Any configured vendor other than the one that failed
	failedVendor := vendorOf(failed)
	for _, kind := range AllProviders() {
		if kind == failedVendor || !r.configured(kind) {
			continue
		}
		return r.route(kind), true
	}

	return Route{}, false
}

func (r *Router) route(kind ProviderKind) Route {
	vendor := r.vendors[kind]
	model := vendor.FallbackModel
	if model == "" {
		model = vendor.Model
	}
	return Route{Provider: kind, Model: model}
}

// vendorOf identifies the vendor of a model by prefix, then by substring
func vendorOf(model string) ProviderKind {
	if kind, ok := InferProvider(model); ok {
		return kind
	}
	switch {
	case strings.Contains(model, "gemini"):
		return ProviderGemini
	case strings.Contains(model, "gpt"):
		return ProviderOpenAI
	case strings.Contains(model, "claude"):
		return ProviderAnthropic
	case strings.Contains(model, "llama"), strings.Contains(model, "mixtral"):
		return ProviderGroq
	}
	return ""
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// GenerateWithFallback calls the primary route, then follows the router
// until a call succeeds, the router has nothing new to offer or
// llm.max_attempts calls have been made. The last error is returned.
func (s *Service) GenerateWithFallback(ctx context.Context, request interfaces.CompletionRequest) (string, error) {
	text, err := s.GenerateText(ctx, request)
	if err == nil || !s.router.Enabled() {
		return text, err
	}

	failedModel := request.Model
	tried := map[Route]bool{}
	if kind, model, resolveErr := s.resolve(request); resolveErr == nil {
		failedModel = model
		tried[Route{Provider: kind, Model: model}] = true
	}

	maxAttempts := s.config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt < maxAttempts; attempt++ {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}

		route, ok := s.router.Fallback(failedModel)
		if !ok || tried[route] {
			break
		}
		tried[route] = true

		s.logger.Warn().
			Err(err).
			Str("failed_model", failedModel).
			Str("fallback_provider", string(route.Provider)).
			Str("fallback_model", route.Model).
			Int("attempt", attempt+1).
			Msg("Falling back to another provider")

		next := request
		next.Provider = string(route.Provider)
		next.Model = route.Model

		text, err = s.GenerateText(ctx, next)
		if err == nil {
			return text, nil
		}
		failedModel = route.Model
	}

	return "", err
}
