package interfaces

import "context"

// CompletionRequest is a vendor-agnostic text generation request.
// Provider may be empty, in which case it is inferred from Model.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Provider    string
	Temperature float32
	MaxTokens   int
}

// CompletionService generates text from a prompt
type CompletionService interface {
	GenerateText(ctx context.Context, request CompletionRequest) (string, error)
}

// FallbackCompletionService generates text, rerouting to substitute
// providers when the primary fails.
type FallbackCompletionService interface {
	CompletionService
	GenerateWithFallback(ctx context.Context, request CompletionRequest) (string, error)
}
