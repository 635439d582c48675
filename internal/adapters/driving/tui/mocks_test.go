package tui

import (
	"context"
	"sync"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// mockPipeline is a mock implementation of driving.PipelineService.
type mockPipeline struct {
	mu        sync.Mutex
	events    []domain.RunEvent
	result    *domain.RunResult
	err       error
	cancelErr error
	cancelled []string
	gotRunID  string
}

func (m *mockPipeline) Run(_ context.Context, _ *domain.Document, opts driving.RunOptions) (*domain.RunResult, error) {
	m.mu.Lock()
	m.gotRunID = opts.RunID
	m.mu.Unlock()
	for _, e := range m.events {
		opts.Observer.OnEvent(e)
	}
	return m.result, m.err
}

func (m *mockPipeline) Cancel(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, runID)
	return m.cancelErr
}

func (m *mockPipeline) Status(string) (*domain.RunProgress, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPipeline) Active() []string {
	return nil
}
