package driven

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Agent is a specialised external agent.
// Every agent exposes the same capability: accept a request, return a payload.
type Agent interface {
	// ID returns the stable agent identifier.
	ID() string

	// Call sends one request and returns the agent's payload.
	// Errors should be *domain.AgentFailure so the gateway can classify them.
	// Untyped errors are treated as transport failures.
	Call(ctx context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error)
}

// AgentRegistry resolves agents by ID.
type AgentRegistry interface {
	// Get returns the agent with the given ID.
	// Returns domain.ErrUnknownAgent if no such agent is registered.
	Get(id string) (Agent, error)

	// IDs returns all registered agent IDs, sorted.
	IDs() []string

	// Close releases agent connections.
	Close() error
}
