package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// NewPublisher creates the publisher selected by config.Publisher.Type.
// Supported types:
//   - "local": badger post store, posts rendered under publisher.output_dir (default)
//   - "wordpress": WordPress REST API with an application password
func NewPublisher(ctx context.Context, config *common.Config, storage interfaces.PostStorage, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.Publisher, error) {
	kind := strings.ToLower(strings.TrimSpace(config.Publisher.Type))
	switch kind {
	case "local", "":
		logger.Info().Str("type", "local").Str("output_dir", config.Publisher.OutputDir).Msg("Initializing publisher")
		return NewLocal(storage, config.Publisher.OutputDir, logger), nil

	case "wordpress":
		wpConfig := config.Publisher.WordPress
		password, err := common.ResolveAPIKey(ctx, kvStorage, "wordpress_app_password", wpConfig.AppPassword)
		if err != nil {
			return nil, err
		}
		wpConfig.AppPassword = password

		wp, err := NewWordPress(wpConfig, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info().Str("type", kind).Str("base_url", wpConfig.BaseURL).Msg("Initializing publisher")
		return wp, nil

	default:
		return nil, &interfaces.ConfigurationError{Key: "publisher.type", Message: fmt.Sprintf("unsupported type %q", kind)}
	}
}
