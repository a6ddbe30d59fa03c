package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// PipelineRunner executes one content pipeline run
type PipelineRunner interface {
	Run(ctx context.Context) models.RunResult
}
