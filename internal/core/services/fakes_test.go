package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// fakeAgent calls fn for every request.
type fakeAgent struct {
	id string
	fn func(ctx context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error)

	mu    sync.Mutex
	calls int
}

func (a *fakeAgent) ID() string { return a.id }

func (a *fakeAgent) Call(ctx context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.fn(ctx, req)
}

func (a *fakeAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// fakeRegistry is a map-backed agent registry.
type fakeRegistry struct {
	agents map[string]driven.Agent
}

func newFakeRegistry(agents ...driven.Agent) *fakeRegistry {
	r := &fakeRegistry{agents: make(map[string]driven.Agent)}
	for _, a := range agents {
		r.agents[a.ID()] = a
	}
	return r
}

func (r *fakeRegistry) Get(id string) (driven.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", id, domain.ErrUnknownAgent)
	}
	return a, nil
}

func (r *fakeRegistry) IDs() []string {
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *fakeRegistry) Close() error { return nil }

// recordingLogger captures invocations.
type recordingLogger struct {
	mu   sync.Mutex
	invs []domain.Invocation
}

func (l *recordingLogger) Log(inv domain.Invocation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invs = append(l.invs, inv)
}

func (l *recordingLogger) All() []domain.Invocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Invocation(nil), l.invs...)
}

// recordingMetrics counts metric calls.
type recordingMetrics struct {
	mu       sync.Mutex
	calls    map[string]int
	skipped  int
	finished []domain.RunStatus
	inFlight int
	peak     int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{calls: make(map[string]int)}
}

func (m *recordingMetrics) AgentCall(agentID string, _ domain.Stage, outcome string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[agentID+"/"+outcome]++
}

func (m *recordingMetrics) InFlight(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight += delta
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
}

func (m *recordingMetrics) SegmentSkipped(domain.Stage, domain.FailureKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

func (m *recordingMetrics) RunFinished(status domain.RunStatus, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, status)
}

// fakeRunStore keeps runs in memory.
type fakeRunStore struct {
	mu       sync.Mutex
	runs     map[string]domain.PipelineRun
	saves    int
	entities map[string][]domain.Entity
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[string]domain.PipelineRun), entities: make(map[string][]domain.Entity)}
}

func (s *fakeRunStore) SaveRun(_ context.Context, run *domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	s.saves++
	return nil
}

func (s *fakeRunStore) GetRun(_ context.Context, id string) (*domain.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (s *fakeRunStore) ListRuns(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PipelineRun
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeRunStore) SaveEntities(_ context.Context, runID string, entities []domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[runID] = entities
	return nil
}

func (s *fakeRunStore) GetEntities(_ context.Context, runID string) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entities[runID], nil
}

func (s *fakeRunStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.runs, id)
	delete(s.entities, id)
	return nil
}

// fakeSink records written artifacts.
type fakeSink struct {
	mu      sync.Mutex
	written map[string][]domain.Artifact
}

func (s *fakeSink) Write(_ context.Context, runID string, artifacts []domain.Artifact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == nil {
		s.written = make(map[string][]domain.Artifact)
	}
	s.written[runID] = artifacts
	return "/out/" + runID, nil
}
