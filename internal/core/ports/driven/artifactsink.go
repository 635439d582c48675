package driven

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// ArtifactSink writes generated artifacts somewhere durable.
type ArtifactSink interface {
	// Write stores the artifacts of a run and returns where they were written.
	Write(ctx context.Context, runID string, artifacts []domain.Artifact) (string, error)
}
