package driven

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// RunStore persists pipeline runs and their merged knowledge.
type RunStore interface {
	// SaveRun stores or updates a run, including its report when present.
	SaveRun(ctx context.Context, run *domain.PipelineRun) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*domain.PipelineRun, error)

	// ListRuns returns up to limit runs, newest first. Zero means no limit.
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)

	// SaveEntities replaces the knowledge entities recorded for a run.
	SaveEntities(ctx context.Context, runID string, entities []domain.Entity) error

	// GetEntities returns the entities recorded for a run, sorted by ID.
	GetEntities(ctx context.Context, runID string) ([]domain.Entity, error)

	// DeleteRun removes a run and its entities.
	DeleteRun(ctx context.Context, id string) error
}
