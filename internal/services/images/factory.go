package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Chain tries each provider in order and returns the first image found
type Chain struct {
	providers []interfaces.ImageProvider
	logger    arbor.ILogger
}

// NewChain creates a provider chain
func NewChain(logger arbor.ILogger, providers ...interfaces.ImageProvider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Name returns the provider names joined by "+"
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// FindImage returns the first provider's image, or the last error
func (c *Chain) FindImage(ctx context.Context, query string) (*models.Image, error) {
	var lastErr error
	for _, p := range c.providers {
		image, err := p.FindImage(ctx, query)
		if err == nil && image != nil {
			return image, nil
		}
		if err != nil {
			if errors.Is(err, interfaces.ErrEmptyInput) || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("Image provider failed, trying next")
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no image for %q", interfaces.ErrNotFound, query)
	}
	return nil, lastErr
}

// NewImageProvider creates the provider selected by config.Images.Mode.
// Supported modes:
//   - "ai": Gemini Imagen, written to images.output_dir
//   - "stock": Pexels
//   - "openverse": Openverse
//   - "fallback": Pexels then Openverse (Openverse alone when no Pexels key)
//   - "none": no thumbnails; returns nil
func NewImageProvider(ctx context.Context, config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.ImageProvider, error) {
	mode := strings.ToLower(strings.TrimSpace(config.Images.Mode))
	opts := []ClientOption{WithLogger(logger)}

	openverse := func() *Openverse {
		return NewOpenverse(append(opts, WithBaseURL(config.Images.OpenverseURL))...)
	}
	pexels := func() (*Pexels, error) {
		apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "pexels_api_key", config.Images.PexelsAPIKey)
		if err != nil {
			return nil, err
		}
		return NewPexels(apiKey, append(opts, WithBaseURL(config.Images.PexelsURL))...), nil
	}

	switch mode {
	case "none", "":
		logger.Info().Msg("Thumbnails disabled")
		return nil, nil

	case "ai":
		apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", config.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("mode", mode).Str("model", config.Images.Model).Msg("Initializing image provider")
		generator, err := NewAIGenerator(ctx, apiKey, config.Images.Model, config.Images.OutputDir, logger)
		if err != nil {
			return nil, err
		}
		return generator, nil

	case "stock":
		logger.Info().Str("mode", mode).Msg("Initializing image provider")
		stock, err := pexels()
		if err != nil {
			return nil, err
		}
		return stock, nil

	case "openverse":
		logger.Info().Str("mode", mode).Msg("Initializing image provider")
		return openverse(), nil

	case "fallback":
		logger.Info().Str("mode", mode).Msg("Initializing image provider")
		stock, err := pexels()
		if err != nil {
			logger.Warn().Err(err).Msg("Pexels unavailable, fallback chain uses Openverse only")
			return NewChain(logger, openverse()), nil
		}
		return NewChain(logger, stock, openverse()), nil

	default:
		return nil, &interfaces.ConfigurationError{Key: "images.mode", Message: fmt.Sprintf("unsupported mode %q", mode)}
	}
}
