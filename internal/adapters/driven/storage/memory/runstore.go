package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]domain.PipelineRun
	entities map[string][]domain.Entity
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:     make(map[string]domain.PipelineRun),
		entities: make(map[string][]domain.Entity),
	}
}

// SaveRun stores or updates a run.
func (s *RunStore) SaveRun(_ context.Context, run *domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	cp.Stages = append([]domain.Stage(nil), run.Stages...)
	if run.Report != nil {
		report := *run.Report
		cp.Report = &report
	}
	s.runs[run.ID] = cp
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PipelineRun, 0, len(s.runs))
	for id := range s.runs {
		out = append(out, s.runs[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveEntities replaces the entities recorded for a run.
func (s *RunStore) SaveEntities(_ context.Context, runID string, entities []domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return domain.ErrNotFound
	}
	cp := make([]domain.Entity, len(entities))
	for i := range entities {
		cp[i] = entities[i].Clone()
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })
	s.entities[runID] = cp
	return nil
}

// GetEntities returns the entities recorded for a run, sorted by ID.
func (s *RunStore) GetEntities(_ context.Context, runID string) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, domain.ErrNotFound
	}
	src := s.entities[runID]
	out := make([]domain.Entity, len(src))
	for i := range src {
		out[i] = src[i].Clone()
	}
	return out, nil
}

// DeleteRun removes a run and its entities.
func (s *RunStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	delete(s.entities, id)
	return nil
}
