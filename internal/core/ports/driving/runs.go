package driving

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// RunService exposes the history of persisted runs.
type RunService interface {
	// List returns up to limit runs, newest first. Zero means no limit.
	List(ctx context.Context, limit int) ([]domain.PipelineRun, error)

	// Get retrieves a run by ID.
	Get(ctx context.Context, runID string) (*domain.PipelineRun, error)

	// Entities returns the merged knowledge entities of a run.
	Entities(ctx context.Context, runID string) ([]domain.Entity, error)

	// Delete removes a run.
	Delete(ctx context.Context, runID string) error
}
