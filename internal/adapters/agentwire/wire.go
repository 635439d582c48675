// Package agentwire defines the MCP tool contract between the orchestrator
// and its agents: one tool per stage, called with ToolArgs and answering
// with a ToolResult as structured content.
package agentwire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Error kinds an agent may report.
const (
	KindSemantic  = "semantic"
	KindTransient = "transient"
)

// ToolArgs are the arguments of every stage tool.
type ToolArgs struct {
	RunID   string  `json:"run_id" jsonschema:"identifier of the pipeline run"`
	Stage   string  `json:"stage" jsonschema:"pipeline stage being executed"`
	Payload Payload `json:"payload" jsonschema:"the segment to process"`
	Context Context `json:"context" jsonschema:"entities produced by earlier stages"`
}

// Payload carries the target segment.
type Payload struct {
	Segment      Segment `json:"segment"`
	SegmentCount int     `json:"segment_count,omitempty"`
}

// Segment is the wire form of a segment.
type Segment struct {
	Ordinal int    `json:"ordinal"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	Digest  string `json:"digest,omitempty"`
}

// Context carries prior-stage entities.
type Context struct {
	Entities []Entity `json:"entities,omitempty"`
}

// Entity is the wire form of a merged entity.
type Entity struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Name       string              `json:"name"`
	Attributes map[string]string   `json:"attributes,omitempty"`
	Lists      map[string][]string `json:"lists,omitempty"`
}

// ToolResult is the structured answer of a stage tool.
type ToolResult struct {
	Status string               `json:"status" jsonschema:"success or failure"`
	Data   *domain.AgentPayload `json:"data,omitempty"`
	Error  *ToolError           `json:"error,omitempty"`
}

// ToolError describes why an agent could not produce a result.
type ToolError struct {
	Kind    string `json:"kind" jsonschema:"semantic or transient"`
	Message string `json:"message"`
}

// NewToolArgs converts a request to tool arguments.
func NewToolArgs(req *domain.AgentRequest) ToolArgs {
	args := ToolArgs{
		RunID: req.RunID,
		Stage: string(req.Stage),
		Payload: Payload{
			Segment: Segment{
				Ordinal: req.Segment.Ordinal,
				Start:   req.Segment.Start,
				End:     req.Segment.End,
				Text:    req.Segment.Text,
				Digest:  req.Segment.Digest,
			},
			SegmentCount: req.SegmentCount,
		},
	}
	for i := range req.Context {
		e := &req.Context[i]
		we := Entity{ID: e.ID, Type: e.Type, Name: e.Name, Lists: e.Sets}
		if len(e.Scalars) > 0 {
			we.Attributes = make(map[string]string, len(e.Scalars))
			for k, v := range e.Scalars {
				we.Attributes[k] = v.Value
			}
		}
		args.Context.Entities = append(args.Context.Entities, we)
	}
	return args
}

// Request converts tool arguments back to a request.
func (a *ToolArgs) Request() (*domain.AgentRequest, error) {
	stage, err := domain.ParseStage(a.Stage)
	if err != nil {
		return nil, err
	}
	req := &domain.AgentRequest{
		RunID: a.RunID,
		Stage: stage,
		Segment: domain.Segment{
			Ordinal: a.Payload.Segment.Ordinal,
			Start:   a.Payload.Segment.Start,
			End:     a.Payload.Segment.End,
			Text:    a.Payload.Segment.Text,
			Digest:  a.Payload.Segment.Digest,
		},
		SegmentCount: a.Payload.SegmentCount,
	}
	for _, we := range a.Context.Entities {
		e := domain.Entity{ID: we.ID, Type: we.Type, Name: we.Name, Sets: we.Lists}
		if len(we.Attributes) > 0 {
			e.Scalars = make(map[string]domain.Scalar, len(we.Attributes))
			for k, v := range we.Attributes {
				e.Scalars[k] = domain.Scalar{Value: v}
			}
		}
		req.Context = append(req.Context, e)
	}
	return req, nil
}

// Success wraps a payload.
func Success(p *domain.AgentPayload) ToolResult {
	if p == nil {
		p = &domain.AgentPayload{}
	}
	return ToolResult{Status: StatusSuccess, Data: p}
}

// Failure reports an error. Agent failures of transport kind are reported
// as transient; everything else as semantic.
func Failure(err error) ToolResult {
	kind := KindSemantic
	if f, ok := domain.AsAgentFailure(err); ok && f.Kind.Retryable() {
		kind = KindTransient
	}
	return ToolResult{Status: StatusFailure, Error: &ToolError{Kind: kind, Message: err.Error()}}
}

// Payload returns the payload of a successful result, or an
// *domain.AgentFailure describing the failure.
func (r *ToolResult) Payload() (*domain.AgentPayload, error) {
	switch r.Status {
	case StatusSuccess:
		if r.Data == nil {
			return &domain.AgentPayload{}, nil
		}
		return r.Data, nil
	case StatusFailure:
		msg := "agent reported failure"
		kind := domain.FailureSemantic
		if r.Error != nil {
			if r.Error.Message != "" {
				msg = r.Error.Message
			}
			if r.Error.Kind == KindTransient {
				kind = domain.FailureTransport
			}
		}
		return nil, domain.NewAgentFailure(kind, errors.New(msg))
	default:
		return nil, domain.NewAgentFailure(domain.FailureSemantic, fmt.Errorf("unknown result status %q", r.Status))
	}
}

// Decode interprets an MCP tool result. Tool-level errors are semantic
// failures; so is output that does not match ToolResult.
func Decode(res *mcp.CallToolResult) (*domain.AgentPayload, error) {
	if res == nil {
		return nil, domain.NewAgentFailure(domain.FailureSemantic, errors.New("empty tool result"))
	}
	if res.IsError {
		return nil, domain.NewAgentFailure(domain.FailureSemantic, errors.New(contentText(res)))
	}

	var raw []byte
	if res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			return nil, domain.NewAgentFailure(domain.FailureSemantic, fmt.Errorf("encode structured content: %w", err))
		}
		raw = b
	} else {
		raw = []byte(contentText(res))
	}

	var out ToolResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.NewAgentFailure(domain.FailureSemantic, fmt.Errorf("malformed tool result: %w", err))
	}
	return out.Payload()
}

func contentText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 {
		return "tool returned an error"
	}
	return strings.Join(parts, "\n")
}
