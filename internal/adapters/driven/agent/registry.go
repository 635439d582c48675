// Package agent holds the registry of configured agents.
package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	mcpagent "github.com/deepcode-labs/deepcode/internal/adapters/driven/agent/mcp"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.AgentRegistry = (*Registry)(nil)

// closer is implemented by agents that hold connections.
type closer interface {
	Close() error
}

// Registry maps agent IDs to agents.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]driven.Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]driven.Agent)}
}

// FromSpecs builds a registry of MCP agents.
func FromSpecs(specs []domain.AgentSpec, opts ...mcpagent.Option) (*Registry, error) {
	r := NewRegistry()
	for i := range specs {
		a, err := mcpagent.NewFromSpec(specs[i], opts...)
		if err != nil {
			return nil, err
		}
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an agent. IDs must be unique.
func (r *Registry) Register(a driven.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.ID()]; exists {
		return fmt.Errorf("%w: agent %s registered twice", domain.ErrInvalidInput, a.ID())
	}
	r.agents[a.ID()] = a
	return nil
}

// Get returns the agent with the given ID.
func (r *Registry) Get(id string) (driven.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
	}
	return a, nil
}

// IDs returns the registered agent IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every agent that holds a connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, a := range r.agents {
		if c, ok := a.(closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", a.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
