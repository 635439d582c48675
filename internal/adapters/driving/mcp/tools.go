package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deepcode-labs/deepcode/internal/adapters/agentwire"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// stageDescriptions are the tool descriptions shown to MCP clients.
var stageDescriptions = map[domain.Stage]string{
	domain.StageIntent:        "Extract the requirements a segment expresses",
	domain.StageParse:         "Extract the structure of a segment: sections, algorithms, formulas",
	domain.StagePlan:          "Produce implementation plan items for a segment",
	domain.StageReferenceMine: "Discover code and literature references in a segment",
	domain.StageIndex:         "Index mined references by the segments that mention them",
	domain.StageGenerate:      "Generate source files for the plan items of a segment",
}

// registerTools registers one tool per served stage.
func (s *Server) registerTools() {
	for _, stage := range s.ports.Agent.Stages() {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        string(stage),
			Description: stageDescriptions[stage],
		}, s.handleStage(stage))
	}
}

// handleStage returns the tool handler for a stage. Agent errors are
// reported inside the structured result, never as protocol errors.
func (s *Server) handleStage(stage domain.Stage) mcp.ToolHandlerFor[agentwire.ToolArgs, agentwire.ToolResult] {
	return func(
		ctx context.Context,
		_ *mcp.CallToolRequest,
		input agentwire.ToolArgs,
	) (*mcp.CallToolResult, agentwire.ToolResult, error) {
		if input.Stage == "" {
			input.Stage = string(stage)
		}
		if input.Stage != string(stage) {
			err := fmt.Errorf("%w: tool %s called for stage %s", domain.ErrInvalidInput, stage, input.Stage)
			return nil, agentwire.Failure(err), nil
		}

		req, err := input.Request()
		if err != nil {
			return nil, agentwire.Failure(err), nil
		}

		payload, err := s.ports.Agent.Handle(ctx, req)
		if err != nil {
			logger.Debug("stage %s segment %d failed: %v", stage, req.Segment.Ordinal, err)
			return nil, agentwire.Failure(err), nil
		}
		return nil, agentwire.Success(payload), nil
	}
}
