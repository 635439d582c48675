package domain

import (
	"errors"
	"fmt"
	"time"
)

// AgentRequest is the payload dispatched to an agent for one stage.
// It is built by the orchestrator per dispatch and consumed once by the gateway.
type AgentRequest struct {
	// RunID identifies the pipeline run.
	RunID string

	// Stage is the pipeline stage being executed.
	Stage Stage

	// Segment is the target segment.
	Segment Segment

	// SegmentCount is the number of segments in the document.
	SegmentCount int

	// Context holds prior-stage entities the agent may need.
	Context []Entity
}

// AgentPayload is the structured data an agent returns on success.
type AgentPayload struct {
	// Entities are records discovered by the agent.
	Entities []EntityRecord `json:"entities,omitempty"`

	// Artifacts are generated output files.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// EntityRecord is an entity as emitted by an agent, before identity is assigned.
type EntityRecord struct {
	// Type is the entity type (e.g. "requirement", "reference").
	Type string `json:"type"`

	// Name is the human-readable name.
	Name string `json:"name"`

	// Key optionally overrides Name as the identity key.
	Key string `json:"key,omitempty"`

	// Attributes are scalar attributes.
	Attributes map[string]string `json:"attributes,omitempty"`

	// Lists are set-valued attributes.
	Lists map[string][]string `json:"lists,omitempty"`
}

// Artifact is a generated output file.
type Artifact struct {
	// Path is the file path relative to the output root.
	Path string `json:"path"`

	// Content is the file content.
	Content string `json:"content"`

	// Language is an optional language hint.
	Language string `json:"language,omitempty"`
}

// FailureKind classifies agent failures.
type FailureKind string

const (
	// FailureTransport is a network or process level error. Retried.
	FailureTransport FailureKind = "transport"

	// FailureUnavailable is a transport failure after retries were exhausted.
	FailureUnavailable FailureKind = "unavailable"

	// FailureSemantic is an explicit rejection by the agent. Never retried.
	FailureSemantic FailureKind = "semantic"

	// FailureTimeout is a call that exceeded its timeout.
	FailureTimeout FailureKind = "timeout"

	// FailureCancelled is a call abandoned because the run was cancelled.
	FailureCancelled FailureKind = "cancelled"
)

// Retryable reports whether a failure of this kind may succeed on retry.
func (k FailureKind) Retryable() bool {
	return k == FailureTransport
}

// AgentFailure is a typed agent failure.
type AgentFailure struct {
	Kind    FailureKind
	Message string
	Err     error
}

// NewAgentFailure creates a failure of the given kind.
func NewAgentFailure(kind FailureKind, err error) *AgentFailure {
	f := &AgentFailure{Kind: kind, Err: err}
	if err != nil {
		f.Message = err.Error()
	}
	return f
}

// Error implements error.
func (f *AgentFailure) Error() string {
	if f.Message == "" {
		return f.sentinel().Error()
	}
	return fmt.Sprintf("%s: %s", f.sentinel(), f.Message)
}

// Unwrap exposes the underlying error.
func (f *AgentFailure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel error for the failure kind.
func (f *AgentFailure) Is(target error) bool {
	return target == f.sentinel()
}

func (f *AgentFailure) sentinel() error {
	switch f.Kind {
	case FailureTransport:
		return ErrAgentTransport
	case FailureUnavailable:
		return ErrAgentUnavailable
	case FailureSemantic:
		return ErrAgentSemantic
	case FailureTimeout:
		return ErrAgentTimeout
	case FailureCancelled:
		return ErrCancelled
	default:
		return ErrAgentTransport
	}
}

// AsAgentFailure extracts an AgentFailure from err.
func AsAgentFailure(err error) (*AgentFailure, bool) {
	var f *AgentFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// AgentResult is the outcome of one gateway invocation.
// It is never mutated after creation.
type AgentResult struct {
	// AgentID is the agent that was invoked.
	AgentID string

	// Stage and SegmentOrdinal identify the dispatch.
	Stage          Stage
	SegmentOrdinal int

	// Payload is set on success.
	Payload *AgentPayload

	// Failure is set on failure.
	Failure *AgentFailure

	// Attempts is the number of calls made, including retries.
	Attempts int

	// Latency is the total time spent in the gateway.
	Latency time.Duration

	// CompletedAt is when the invocation finished.
	CompletedAt time.Time
}

// OK reports whether the invocation succeeded.
func (r *AgentResult) OK() bool {
	return r != nil && r.Failure == nil && r.Payload != nil
}

// Invocation is the observability record of one gateway invocation.
type Invocation struct {
	RunID          string
	AgentID        string
	Stage          Stage
	SegmentOrdinal int
	Attempts       int
	Latency        time.Duration
	Outcome        string
	Error          string
	At             time.Time
}
