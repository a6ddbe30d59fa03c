package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DefaultImageModel is the Imagen model used for generated thumbnails
const DefaultImageModel = "imagen-3.0-generate-002"

// generateFunc produces image bytes and their MIME type for a prompt
type generateFunc func(ctx context.Context, prompt string) ([]byte, string, error)

// AIGenerator generates thumbnails with Gemini Imagen and writes them to disk
type AIGenerator struct {
	model     string
	outputDir string
	generate  generateFunc
	logger    arbor.ILogger
}

// NewAIGenerator creates a generator backed by the Gemini API
func NewAIGenerator(ctx context.Context, apiKey, model, outputDir string, logger arbor.ILogger) (*AIGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	if model == "" {
		model = DefaultImageModel
	}

	g := &AIGenerator{model: model, outputDir: outputDir, logger: logger}
	g.generate = func(ctx context.Context, prompt string) ([]byte, string, error) {
		resp, err := client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
			AspectRatio:    "16:9",
		})
		if err != nil {
			return nil, "", &interfaces.ProviderError{Provider: "gemini", Model: model, Err: err}
		}
		if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
			return nil, "", &interfaces.ProviderError{Provider: "gemini", Model: model, Err: fmt.Errorf("no image returned")}
		}
		image := resp.GeneratedImages[0].Image
		return image.ImageBytes, image.MIMEType, nil
	}
	return g, nil
}

// Name returns the provider name
func (g *AIGenerator) Name() string {
	return "imagen"
}

// FindImage generates an illustration for query and saves it under the
// output directory.
func (g *AIGenerator) FindImage(ctx context.Context, query string) (*models.Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: image query is empty", interfaces.ErrEmptyInput)
	}

	prompt := fmt.Sprintf("A clean editorial blog header illustration about: %s. No text, no logos, no watermarks.", query)
	data, mimeType, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &interfaces.ProviderError{Provider: "gemini", Model: g.model, Err: fmt.Errorf("empty image data")}
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create image directory: %v", interfaces.ErrPersistence, err)
	}
	path := filepath.Join(g.outputDir, common.NewImageID()+extensionFor(mimeType))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("%w: failed to write image: %v", interfaces.ErrPersistence, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	g.logger.Info().Str("path", absPath).Int("bytes", len(data)).Msg("Thumbnail generated")
	return &models.Image{
		URL:         "file://" + filepath.ToSlash(absPath),
		Data:        data,
		MimeType:    mimeType,
		Source:      g.Name(),
		Attribution: "AI-generated image",
	}, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
