// Package llm generates text through six vendors behind one dispatch table,
// with rate-limit retries and cross-vendor fallback routing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Service implements interfaces.FallbackCompletionService
type Service struct {
	config    common.LLMConfig
	vendors   map[ProviderKind]common.VendorConfig
	kvStorage interfaces.KeyValueStorage
	bindings  map[ProviderKind]Binding
	retry     *RetryConfig
	timeout   time.Duration
	router    *Router
	logger    arbor.ILogger
}

// NewService creates the completion service with the production dispatch table
func NewService(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*Service, error) {
	return NewServiceWithBindings(config, kvStorage, DefaultBindings(), logger)
}

// NewServiceWithBindings creates the service over a caller-supplied dispatch
// table. Every ProviderKind must be bound.
func NewServiceWithBindings(config *common.Config, kvStorage interfaces.KeyValueStorage, bindings map[ProviderKind]Binding, logger arbor.ILogger) (*Service, error) {
	for _, kind := range AllProviders() {
		if bindings[kind] == nil {
			return nil, fmt.Errorf("no binding registered for provider %s", kind)
		}
	}

	retry := NewDefaultRetryConfig()
	retry.MaxRetries = config.LLM.MaxRetries

	s := &Service{
		config: config.LLM,
		vendors: map[ProviderKind]common.VendorConfig{
			ProviderOpenAI:      config.OpenAI,
			ProviderAnthropic:   config.Anthropic,
			ProviderGemini:      config.Gemini,
			ProviderGroq:        config.Groq,
			ProviderOpenRouter:  config.OpenRouter,
			ProviderHuggingFace: config.HuggingFace,
		},
		kvStorage: kvStorage,
		bindings:  bindings,
		retry:     retry,
		timeout:   common.ParseDurationOr(config.LLM.Timeout, 5*time.Minute),
		logger:    logger,
	}
	s.router = NewRouter(config.LLM.SmartFallback, s.vendors, s.Configured)

	return s, nil
}

// SetRetryConfig replaces the rate-limit retry policy
func (s *Service) SetRetryConfig(retry *RetryConfig) {
	s.retry = retry
}

// Router returns the fallback router bound to this service's credentials
func (s *Service) Router() *Router {
	return s.router
}

// Configured reports whether a credential exists for kind
func (s *Service) Configured(kind ProviderKind) bool {
	vendor, ok := s.vendors[kind]
	if !ok {
		return false
	}
	_, err := common.ResolveAPIKey(context.Background(), s.kvStorage, keyName(kind), vendor.APIKey)
	return err == nil
}

// resolve determines the provider and the model sent on the wire
func (s *Service) resolve(request interfaces.CompletionRequest) (ProviderKind, string, error) {
	model := request.Model
	providerName := request.Provider
	if model == "" && providerName == "" {
		model = s.config.Model
		providerName = s.config.Provider
	}

	var kind ProviderKind
	if providerName != "" {
		parsed, err := ParseProviderKind(providerName)
		if err != nil {
			return "", "", err
		}
		kind = parsed
	} else {
		inferred, ok := InferProvider(model)
		if !ok {
			return "", "", &interfaces.ConfigurationError{
				Key:     "llm.provider",
				Message: fmt.Sprintf("cannot infer provider for model %q", model),
			}
		}
		kind = inferred
	}

	if model == "" {
		model = s.vendors[kind].Model
	}
	return kind, NormalizeModel(kind, model), nil
}

// GenerateText runs one completion against the resolved vendor. A missing
// credential fails with a ConfigurationError before any network call; vendor
// failures come back as a ProviderError. Rate-limit errors are retried.
func (s *Service) GenerateText(ctx context.Context, request interfaces.CompletionRequest) (string, error) {
	kind, model, err := s.resolve(request)
	if err != nil {
		s.logger.Error().Err(err).Str("model", request.Model).Msg("Cannot route completion request")
		return "", err
	}

	vendor := s.vendors[kind]
	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, keyName(kind), vendor.APIKey)
	if err != nil {
		s.logger.Error().Str("provider", string(kind)).Msg("API key not configured")
		return "", err
	}

	call := Call{
		APIKey:      apiKey,
		BaseURL:     vendor.BaseURL,
		Model:       model,
		Prompt:      request.Prompt,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
	}
	if call.Temperature <= 0 {
		call.Temperature = s.config.Temperature
	}
	if call.MaxTokens <= 0 {
		call.MaxTokens = s.config.MaxTokens
	}

	binding := s.bindings[kind]
	start := time.Now()

	var text string
	var callErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		text, callErr = s.invoke(ctx, binding, call)
		if callErr == nil {
			break
		}
		if !IsRateLimitError(callErr) || attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt, ExtractRetryDelay(callErr))
		s.logger.Warn().
			Str("provider", string(kind)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(callErr).
			Msg("Rate limited, retrying completion")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if callErr != nil {
		s.logger.Warn().
			Err(callErr).
			Str("provider", string(kind)).
			Str("model", model).
			Dur("duration", time.Since(start)).
			Msg("Completion failed")
		return "", &interfaces.ProviderError{
			Provider:   string(kind),
			Model:      model,
			StatusCode: statusCodeFromError(callErr),
			Err:        callErr,
		}
	}

	s.logger.Debug().
		Str("provider", string(kind)).
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Completion succeeded")

	return text, nil
}

func (s *Service) invoke(ctx context.Context, binding Binding, call Call) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := binding.Generate(callCtx, call)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("response contained no text")
	}
	return text, nil
}

var _ interfaces.FallbackCompletionService = (*Service)(nil)
