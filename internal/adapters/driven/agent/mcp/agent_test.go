package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/adapters/agentwire"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

type stageHandler func(args agentwire.ToolArgs) agentwire.ToolResult

// serve starts an in-memory agent server with one tool and returns a
// factory for the client side.
func serve(t *testing.T, tool string, h stageHandler) TransportFactory {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "test-agent", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: tool, Description: "test stage"},
		func(_ context.Context, _ *mcp.CallToolRequest, args agentwire.ToolArgs) (*mcp.CallToolResult, agentwire.ToolResult, error) {
			return nil, h(args), nil
		})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	return func() (mcp.Transport, error) { return clientTransport, nil }
}

func request(stage domain.Stage) *domain.AgentRequest {
	return &domain.AgentRequest{
		RunID:        "run-1",
		Stage:        stage,
		Segment:      domain.Segment{Ordinal: 2, Start: 0, End: 5, Text: "hello"},
		SegmentCount: 3,
	}
}

func TestAgent_CallSuccess(t *testing.T) {
	var got agentwire.ToolArgs
	dial := serve(t, "parse", func(args agentwire.ToolArgs) agentwire.ToolResult {
		got = args
		return agentwire.Success(&domain.AgentPayload{
			Entities: []domain.EntityRecord{{Type: "structure", Name: "Intro"}},
		})
	})

	a := New("parser", dial)
	t.Cleanup(func() { _ = a.Close() })

	payload, err := a.Call(context.Background(), request(domain.StageParse))
	require.NoError(t, err)
	require.Len(t, payload.Entities, 1)
	assert.Equal(t, "Intro", payload.Entities[0].Name)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.Payload.Segment.Ordinal)
	assert.Equal(t, "hello", got.Payload.Segment.Text)
	assert.Equal(t, "parser", a.ID())
}

func TestAgent_ReusesSession(t *testing.T) {
	dials := 0
	inner := serve(t, "parse", func(agentwire.ToolArgs) agentwire.ToolResult {
		return agentwire.Success(nil)
	})
	a := New("parser", func() (mcp.Transport, error) {
		dials++
		return inner()
	})
	t.Cleanup(func() { _ = a.Close() })

	for i := 0; i < 3; i++ {
		_, err := a.Call(context.Background(), request(domain.StageParse))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, dials)
}

func TestAgent_SemanticFailure(t *testing.T) {
	dial := serve(t, "plan", func(agentwire.ToolArgs) agentwire.ToolResult {
		return agentwire.Failure(errors.New("segment has no requirements"))
	})
	a := New("planner", dial)
	t.Cleanup(func() { _ = a.Close() })

	_, err := a.Call(context.Background(), request(domain.StagePlan))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAgentSemantic)
	assert.Contains(t, err.Error(), "segment has no requirements")
}

func TestAgent_TransientFailure(t *testing.T) {
	dial := serve(t, "plan", func(agentwire.ToolArgs) agentwire.ToolResult {
		return agentwire.Failure(domain.NewAgentFailure(domain.FailureTransport, errors.New("rate limited")))
	})
	a := New("planner", dial)
	t.Cleanup(func() { _ = a.Close() })

	_, err := a.Call(context.Background(), request(domain.StagePlan))
	assert.ErrorIs(t, err, domain.ErrAgentTransport)
}

func TestAgent_ToolOverride(t *testing.T) {
	dial := serve(t, "custom_tool", func(agentwire.ToolArgs) agentwire.ToolResult {
		return agentwire.Success(nil)
	})
	a := New("custom", dial, WithTool("custom_tool"))
	t.Cleanup(func() { _ = a.Close() })

	_, err := a.Call(context.Background(), request(domain.StageIndex))
	assert.NoError(t, err)
}

func TestAgent_UnknownTool(t *testing.T) {
	dial := serve(t, "parse", func(agentwire.ToolArgs) agentwire.ToolResult {
		return agentwire.Success(nil)
	})
	a := New("parser", dial)
	t.Cleanup(func() { _ = a.Close() })

	_, err := a.Call(context.Background(), request(domain.StageGenerate))
	assert.Error(t, err)
}

func TestAgent_DialFailure(t *testing.T) {
	a := New("broken", func() (mcp.Transport, error) {
		return nil, errors.New("no route")
	})

	_, err := a.Call(context.Background(), request(domain.StageParse))
	assert.ErrorIs(t, err, domain.ErrAgentTransport)
	f, ok := domain.AsAgentFailure(err)
	require.True(t, ok)
	assert.True(t, f.Kind.Retryable())
}

func TestAgent_Closed(t *testing.T) {
	a := New("closed", func() (mcp.Transport, error) {
		t.Fatal("closed agent must not dial")
		return nil, nil
	})
	require.NoError(t, a.Close())

	_, err := a.Call(context.Background(), request(domain.StageParse))
	assert.ErrorIs(t, err, domain.ErrAgentUnavailable)
}

func TestAgent_CancelledContext(t *testing.T) {
	a := New("slow", func() (mcp.Transport, error) {
		return nil, errors.New("unreachable")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Call(ctx, request(domain.StageParse))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFromSpec(t *testing.T) {
	a, err := NewFromSpec(domain.AgentSpec{ID: "intent", Command: "deepcode", Args: []string{"agent", "serve"}})
	require.NoError(t, err)
	assert.Equal(t, "intent", a.ID())
	assert.Empty(t, a.tool)

	tr, err := a.dial()
	require.NoError(t, err)
	ct, ok := tr.(*mcp.CommandTransport)
	require.True(t, ok)
	assert.Equal(t, []string{"deepcode", "agent", "serve"}, ct.Command.Args)

	h, err := NewFromSpec(domain.AgentSpec{ID: "remote", URL: "http://localhost:9000/mcp", Tool: "run"})
	require.NoError(t, err)
	assert.Equal(t, "run", h.tool)
	tr, err = h.dial()
	require.NoError(t, err)
	st, ok := tr.(*mcp.StreamableClientTransport)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000/mcp", st.Endpoint)

	_, err = NewFromSpec(domain.AgentSpec{ID: "both", Command: "x", URL: "http://y"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
