package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for agent resources.
	uriScheme = "deepcode://"

	stagesURI = uriScheme + "stages"
)

// stageInfo describes one served stage.
type stageInfo struct {
	Stage       string `json:"stage"`
	Position    int    `json:"position"`
	Description string `json:"description"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         stagesURI,
		Name:        "stages",
		Description: "Pipeline stages served by this agent",
		MIMEType:    "application/json",
	}, s.handleStagesResource)
}

// handleStagesResource lists the served stages in execution order.
func (s *Server) handleStagesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stages := s.ports.Agent.Stages()
	infos := make([]stageInfo, len(stages))
	for i, st := range stages {
		infos[i] = stageInfo{
			Stage:       string(st),
			Position:    st.Position(),
			Description: stageDescriptions[st],
		}
	}

	data, err := json.Marshal(infos)
	if err != nil {
		return nil, fmt.Errorf("marshalling stages: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
