// Package mcp implements driven.Agent over the Model Context Protocol.
//
// Each agent is an MCP server exposing one tool per pipeline stage. The
// client connects lazily on the first call and reconnects after a
// transport failure.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deepcode-labs/deepcode/internal/adapters/agentwire"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Agent = (*Agent)(nil)

// ClientName is the implementation name announced to agents.
const ClientName = "deepcode"

// ErrClosed is returned by calls on a closed agent.
var ErrClosed = errors.New("agent closed")

// TransportFactory builds a fresh transport for each connection attempt.
type TransportFactory func() (mcp.Transport, error)

// Agent is an MCP client bound to one agent server.
type Agent struct {
	id      string
	tool    string
	version string
	dial    TransportFactory

	mu      sync.Mutex
	session *mcp.ClientSession
	closed  bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithVersion sets the client version announced on connect.
func WithVersion(v string) Option {
	return func(a *Agent) { a.version = v }
}

// WithTool overrides the tool name. By default the stage name is used.
func WithTool(name string) Option {
	return func(a *Agent) { a.tool = name }
}

// New creates an agent that dials with the given factory.
func New(id string, dial TransportFactory, opts ...Option) *Agent {
	a := &Agent{id: id, dial: dial, version: "dev"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromSpec creates an agent from its configuration. Command specs
// start a child process speaking MCP over stdio; URL specs use streamable
// HTTP.
func NewFromSpec(spec domain.AgentSpec, opts ...Option) (*Agent, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	var dial TransportFactory
	if spec.Command != "" {
		dial = func() (mcp.Transport, error) {
			//nolint:gosec // the command comes from the user's own configuration
			return &mcp.CommandTransport{Command: exec.Command(spec.Command, spec.Args...)}, nil
		}
	} else {
		dial = func() (mcp.Transport, error) {
			return &mcp.StreamableClientTransport{Endpoint: spec.URL}, nil
		}
	}
	if spec.Tool != "" {
		opts = append(opts, WithTool(spec.Tool))
	}
	return New(spec.ID, dial, opts...), nil
}

// ID returns the agent identifier.
func (a *Agent) ID() string {
	return a.id
}

// Call invokes the stage tool for the request.
func (a *Agent) Call(ctx context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error) {
	session, err := a.connect(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrClosed) {
			return nil, domain.NewAgentFailure(domain.FailureUnavailable, err)
		}
		return nil, domain.NewAgentFailure(domain.FailureTransport, err)
	}

	tool := a.tool
	if tool == "" {
		tool = string(req.Stage)
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: agentwire.NewToolArgs(req),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.drop(session)
		return nil, domain.NewAgentFailure(domain.FailureTransport, fmt.Errorf("call %s on %s: %w", tool, a.id, err))
	}

	return agentwire.Decode(res)
}

// Close ends the session and, for stdio agents, stops the process.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}

func (a *Agent) connect(ctx context.Context) (*mcp.ClientSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}
	if a.session != nil {
		return a.session, nil
	}

	transport, err := a.dial()
	if err != nil {
		return nil, fmt.Errorf("build transport for %s: %w", a.id, err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: a.version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", a.id, err)
	}
	a.session = session
	return session, nil
}

// drop discards a broken session so the next call reconnects.
func (a *Agent) drop(session *mcp.ClientSession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != session {
		return
	}
	_ = a.session.Close()
	a.session = nil
}
