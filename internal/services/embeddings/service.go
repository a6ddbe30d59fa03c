// Package embeddings produces embedding vectors through one of several vendors.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// ProviderKind names an embedding vendor
type ProviderKind string

const (
	ProviderOpenAI      ProviderKind = "openai"
	ProviderGemini      ProviderKind = "gemini"
	ProviderHuggingFace ProviderKind = "huggingface"
)

// ParseProviderKind validates an embedding provider name
func ParseProviderKind(name string) (ProviderKind, error) {
	switch kind := ProviderKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case ProviderOpenAI, ProviderGemini, ProviderHuggingFace:
		return kind, nil
	default:
		return "", &interfaces.ConfigurationError{Key: "embedding.provider", Message: fmt.Sprintf("unknown provider %q", name)}
	}
}

// Sanitize drops invalid UTF-8 sequences and trims surrounding whitespace
func Sanitize(text string) string {
	return strings.TrimSpace(strings.ToValidUTF8(text, ""))
}

var statusCodePattern = regexp.MustCompile(`status(?:\s+code)?:?\s*(\d{3})\b`)

// backend performs the vendor call for already sanitized text
type backend interface {
	embed(ctx context.Context, text string) ([]float32, error)
}

// connectFunc resolves credentials and builds a backend
type connectFunc func(ctx context.Context) (backend, error)

// Service implements interfaces.Embedder. The vendor client is created on
// first use so a missing credential surfaces as a ConfigurationError from
// Embed without any network call.
type Service struct {
	kind    ProviderKind
	model   string
	timeout time.Duration
	logger  arbor.ILogger
	connect connectFunc

	mu      sync.Mutex
	backend backend
}

// NewService creates the embedder selected by config.Embedding.Provider.
// Credentials resolve env → KV store → config.
func NewService(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*Service, error) {
	kind, err := ParseProviderKind(config.Embedding.Provider)
	if err != nil {
		return nil, err
	}

	timeout := common.ParseDurationOr(config.LLM.Timeout, 5*time.Minute)
	s := &Service{kind: kind, timeout: timeout, logger: logger}

	switch kind {
	case ProviderOpenAI:
		s.model = config.Embedding.OpenAIModel
		vendor := config.OpenAI
		model := s.model
		s.connect = func(ctx context.Context) (backend, error) {
			apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "openai_api_key", vendor.APIKey)
			if err != nil {
				return nil, err
			}
			return newOpenAIBackend(apiKey, model, vendor.BaseURL)
		}
	case ProviderGemini:
		s.model = config.Embedding.GeminiModel
		vendor := config.Gemini
		model, dims := s.model, config.Embedding.GeminiDimensions
		s.connect = func(ctx context.Context) (backend, error) {
			apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", vendor.APIKey)
			if err != nil {
				return nil, err
			}
			return newGeminiBackend(ctx, apiKey, model, dims)
		}
	case ProviderHuggingFace:
		s.model = config.Embedding.HuggingFaceModel
		vendor := config.HuggingFace
		model, baseURL := s.model, config.Embedding.HuggingFaceURL
		s.connect = func(ctx context.Context) (backend, error) {
			apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "huggingface_api_key", vendor.APIKey)
			if err != nil {
				return nil, err
			}
			return newHuggingFaceBackend(apiKey, model, baseURL)
		}
	}

	logger.Debug().
		Str("provider", string(kind)).
		Str("model", s.model).
		Msg("Embedding service created")

	return s, nil
}

// Name returns "<kind>:<model>", stamped on every chunk this service embeds
func (s *Service) Name() string {
	return string(s.kind) + ":" + s.model
}

// Kind returns the configured vendor
func (s *Service) Kind() ProviderKind {
	return s.kind
}

// Embed sanitizes text and returns its embedding vector.
// Errors are ErrEmptyInput, a ConfigurationError or a ProviderError.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := Sanitize(text)
	if clean == "" {
		return nil, interfaces.ErrEmptyInput
	}

	b, err := s.getBackend(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", string(s.kind)).Msg("Embedding provider unavailable")
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	vector, err := b.embed(callCtx, clean)
	if err == nil && len(vector) == 0 {
		err = errors.New("response contained no embedding")
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("provider", string(s.kind)).
			Str("model", s.model).
			Int("text_length", len(clean)).
			Msg("Embedding generation failed")
		return nil, s.providerError(err)
	}

	s.logger.Debug().
		Str("provider", string(s.kind)).
		Int("embedding_dim", len(vector)).
		Dur("duration", time.Since(start)).
		Msg("Generated embedding")

	return vector, nil
}

func (s *Service) getBackend(ctx context.Context) (backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != nil {
		return s.backend, nil
	}
	b, err := s.connect(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrConfiguration) {
			return nil, err
		}
		return nil, s.providerError(err)
	}
	s.backend = b
	return b, nil
}

func (s *Service) providerError(err error) error {
	var perr *interfaces.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &interfaces.ProviderError{
		Provider:   string(s.kind),
		Model:      s.model,
		StatusCode: statusCode(err),
		Err:        err,
	}
}

// statusCode pulls an HTTP status out of a vendor error message
func statusCode(err error) int {
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

var _ interfaces.Embedder = (*Service)(nil)
