package llm

import "context"

// Call is one shaped request handed to a vendor binding. Credentials have
// already been resolved by the Service.
type Call struct {
	APIKey      string
	BaseURL     string
	Model       string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Binding performs the wire call for one vendor and returns the primary text field
type Binding interface {
	Generate(ctx context.Context, call Call) (string, error)
}

// BindingFunc adapts a function to the Binding interface
type BindingFunc func(ctx context.Context, call Call) (string, error)

// Generate calls f
func (f BindingFunc) Generate(ctx context.Context, call Call) (string, error) {
	return f(ctx, call)
}

// DefaultBindings builds the dispatch table used in production
func DefaultBindings() map[ProviderKind]Binding {
	return map[ProviderKind]Binding{
		ProviderOpenAI:      &openAICompatBinding{name: "openai"},
		ProviderAnthropic:   &anthropicBinding{},
		ProviderGemini:      &geminiBinding{},
		ProviderGroq:        &openAICompatBinding{name: "groq"},
		ProviderOpenRouter:  &openAICompatBinding{name: "openrouter"},
		ProviderHuggingFace: &openAICompatBinding{name: "huggingface"},
	}
}
