// Package mcp hosts agents as MCP servers. Each served pipeline stage is
// exposed as a tool named after the stage, so the orchestrator can reach
// the agent as a child process over stdio or remotely over HTTP.
package mcp

import "errors"

// ErrMissingAgentService is returned when the agent service is not provided.
var ErrMissingAgentService = errors.New("mcp: agent service is required")

// ErrNoStages is returned when the agent service serves no stage.
var ErrNoStages = errors.New("mcp: agent serves no stage")
