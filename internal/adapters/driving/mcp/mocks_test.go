package mcp

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// mockAgentService is a mock implementation of driving.AgentService.
type mockAgentService struct {
	stages []domain.Stage
	last   *domain.AgentRequest
	err    error
}

func (m *mockAgentService) Stages() []domain.Stage {
	return m.stages
}

func (m *mockAgentService) Handle(_ context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AgentPayload{
		Entities: []domain.EntityRecord{{Type: "structure", Name: req.Segment.Text}},
	}, nil
}
