package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultAnthropicMaxTokens is required by the Messages API when the caller sets none
const defaultAnthropicMaxTokens = 4096

type anthropicBinding struct{}

func (b *anthropicBinding) Generate(ctx context.Context, call Call) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(call.APIKey)}
	if call.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(call.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := call.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(call.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.Prompt)),
		},
	}
	if call.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(call.Temperature))
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages call failed: %w", err)
	}

	// Extract text from response
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Anthropic API")
	}
	return text.String(), nil
}
