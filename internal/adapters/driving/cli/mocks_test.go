package cli

import (
	"context"
	"sync"
	"testing"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// mockSettings implements driving.SettingsService.
type mockSettings struct {
	settings      *domain.AppSettings
	err           error
	wroteDefaults bool
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		s := domain.DefaultAppSettings()
		return &s, nil
	}
	return m.settings, nil
}

func (m *mockSettings) WriteDefaults() error {
	m.wroteDefaults = true
	return nil
}

func (m *mockSettings) Path() string {
	return "/tmp/deepcode/config.toml"
}

// mockIngest implements driving.IngestService.
type mockIngest struct {
	mu     sync.Mutex
	inputs []*domain.RawInput
	err    error
}

func (m *mockIngest) Ingest(_ context.Context, raw *domain.RawInput) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, raw)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{ID: "doc-1", Source: raw.Source, URI: raw.URI, Text: string(raw.Content), Title: "Doc"}, nil
}

func (m *mockIngest) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngest) Segments(context.Context, string) ([]domain.Segment, error) {
	return nil, nil
}

func (m *mockIngest) last() *domain.RawInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

// mockPipeline implements driving.PipelineService.
type mockPipeline struct {
	status domain.RunStatus
	err    error
	events []domain.RunEvent
	runID  string
}

func (m *mockPipeline) Run(_ context.Context, doc *domain.Document, opts driving.RunOptions) (*domain.RunResult, error) {
	m.runID = opts.RunID
	if opts.Observer != nil {
		for _, e := range m.events {
			e.RunID = opts.RunID
			opts.Observer.OnEvent(e)
		}
	}
	status := m.status
	if status == "" {
		status = domain.RunCompleted
	}
	return &domain.RunResult{
		Run: domain.PipelineRun{ID: opts.RunID, DocumentID: doc.ID, Status: status},
		Artifacts: []domain.Artifact{
			{Path: "README.md", Content: "# Doc"},
		},
		Report: domain.RunReport{
			RunID:        opts.RunID,
			DocumentID:   doc.ID,
			Status:       status,
			SegmentCount: 1,
			Artifacts:    1,
			Stages: []domain.StageReport{
				{Stage: domain.StageIntent, AgentID: "intent", Required: true, Succeeded: 1},
			},
		},
	}, m.err
}

func (m *mockPipeline) Cancel(string) error {
	return domain.ErrNotFound
}

func (m *mockPipeline) Status(string) (*domain.RunProgress, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPipeline) Active() []string {
	return nil
}

// mockRuns implements driving.RunService.
type mockRuns struct {
	runs     []domain.PipelineRun
	entities []domain.Entity
	deleted  []string
}

func (m *mockRuns) List(_ context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockRuns) Get(_ context.Context, runID string) (*domain.PipelineRun, error) {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRuns) Entities(context.Context, string) ([]domain.Entity, error) {
	return m.entities, nil
}

func (m *mockRuns) Delete(_ context.Context, runID string) error {
	if _, err := m.Get(context.Background(), runID); err != nil {
		return err
	}
	m.deleted = append(m.deleted, runID)
	return nil
}

type testServices struct {
	settings *mockSettings
	ingest   *mockIngest
	pipeline *mockPipeline
	runs     *mockRuns
}

// setupTestServices installs mocks and restores package state afterwards.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		settings: &mockSettings{},
		ingest:   &mockIngest{},
		pipeline: &mockPipeline{},
		runs:     &mockRuns{},
	}
	SetSettingsService(ts.settings)
	SetServices(&Services{
		Ingest:    ts.ingest,
		Pipeline:  ts.pipeline,
		Runs:      ts.runs,
		OutputDir: "/tmp/deepcode/output",
	})
	t.Cleanup(func() {
		SetSettingsService(nil)
		SetServices(nil)
		SetWiring(Wiring{})
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		runText, runSourceURL, runMIMEType = "", "", ""
		runPlain, runDetails = false, false
		runsJSON = false
		runsLimit = 20
		agentRoles = nil
	})
	return ts
}
