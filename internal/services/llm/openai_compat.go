package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// openAICompatBinding speaks the OpenAI chat completions protocol. Groq,
// OpenRouter and the Hugging Face router expose the same wire shape at
// their own base URL.
type openAICompatBinding struct {
	name string
}

func (b *openAICompatBinding) Generate(ctx context.Context, call Call) (string, error) {
	opts := []openai.Option{
		openai.WithToken(call.APIKey),
		openai.WithModel(call.Model),
	}
	if call.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(call.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create %s client: %w", b.name, err)
	}

	callOpts := []llms.CallOption{llms.WithTemperature(float64(call.Temperature))}
	if call.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(call.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, client, call.Prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", b.name, err)
	}
	return text, nil
}
