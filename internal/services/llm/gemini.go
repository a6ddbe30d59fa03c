package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type geminiBinding struct{}

func (b *geminiBinding) Generate(ctx context.Context, call Call) (string, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  call.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if call.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: call.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(call.Temperature),
	}
	if call.MaxTokens > 0 {
		config.MaxOutputTokens = int32(call.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(call.Prompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, call.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}
	return text, nil
}
