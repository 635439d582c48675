package services

import (
	"context"
	"fmt"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// Ensure RunService implements the interface.
var _ driving.RunService = (*RunService)(nil)

// RunService reads persisted run history.
type RunService struct {
	store driven.RunStore
}

// NewRunService creates a run service.
func NewRunService(store driven.RunStore) *RunService {
	return &RunService{store: store}
}

// List returns recent runs.
func (s *RunService) List(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", domain.ErrInvalidInput)
	}
	return s.store.ListRuns(ctx, limit)
}

// Get retrieves a run.
func (s *RunService) Get(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	return s.store.GetRun(ctx, runID)
}

// Entities returns the merged entities of a run.
func (s *RunService) Entities(ctx context.Context, runID string) ([]domain.Entity, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.GetEntities(ctx, runID)
}

// Delete removes a run and its entities.
func (s *RunService) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	return s.store.DeleteRun(ctx, runID)
}
