package mcp

import (
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Agent answers stage requests.
	Agent driving.AgentService

	// Name is announced to clients. Defaults to "deepcode-agent".
	Name string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Agent == nil {
		return ErrMissingAgentService
	}
	if len(p.Agent.Stages()) == 0 {
		return ErrNoStages
	}
	return nil
}
