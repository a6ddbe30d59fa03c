package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// ProviderKind is the closed set of completion vendors
type ProviderKind string

const (
	ProviderOpenAI      ProviderKind = "openai"
	ProviderAnthropic   ProviderKind = "anthropic"
	ProviderGemini      ProviderKind = "gemini"
	ProviderGroq        ProviderKind = "groq"
	ProviderOpenRouter  ProviderKind = "openrouter"
	ProviderHuggingFace ProviderKind = "huggingface"
)

// AllProviders lists every ProviderKind in a fixed order. The dispatch
// table must hold a binding for each of them.
func AllProviders() []ProviderKind {
	return []ProviderKind{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGemini,
		ProviderGroq,
		ProviderOpenRouter,
		ProviderHuggingFace,
	}
}

// ParseProviderKind validates an explicit provider name
func ParseProviderKind(name string) (ProviderKind, error) {
	normalized := ProviderKind(strings.ToLower(strings.TrimSpace(name)))
	if normalized == "claude" {
		return ProviderAnthropic, nil
	}
	for _, kind := range AllProviders() {
		if kind == normalized {
			return kind, nil
		}
	}
	return "", &interfaces.ConfigurationError{Key: "llm.provider", Message: fmt.Sprintf("unknown provider %q", name)}
}

// InferProvider maps a model name to its vendor by prefix:
//
//	gpt*, o1*, o3*    → openai
//	claude*           → anthropic
//	gemini*           → gemini
//	llama*, mixtral*  → groq
//	openrouter*       → openrouter
func InferProvider(model string) (ProviderKind, bool) {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		return ProviderOpenAI, true
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic, true
	case strings.HasPrefix(m, "gemini"):
		return ProviderGemini, true
	case strings.HasPrefix(m, "llama"), strings.HasPrefix(m, "mixtral"):
		return ProviderGroq, true
	case strings.HasPrefix(m, "openrouter"):
		return ProviderOpenRouter, true
	default:
		return "", false
	}
}

// NormalizeModel strips routing prefixes the vendor does not accept.
// OpenRouter models lose "openrouter/" except the "openrouter/auto" router.
func NormalizeModel(kind ProviderKind, model string) string {
	if kind == ProviderOpenRouter && strings.HasPrefix(strings.ToLower(model), "openrouter/") &&
		!strings.EqualFold(model, "openrouter/auto") {
		return model[len("openrouter/"):]
	}
	return model
}

// keyName is the credential name resolved through common.ResolveAPIKey
func keyName(kind ProviderKind) string {
	return string(kind) + "_api_key"
}
