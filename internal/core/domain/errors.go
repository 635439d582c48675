package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown segmenter or normaliser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnknownAgent indicates a stage is bound to an agent that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrRunInProgress indicates a run with the same ID is already executing.
	ErrRunInProgress = errors.New("run in progress")

	// Run errors.

	// ErrEmptyInput indicates the document has no content. Fatal for the run.
	ErrEmptyInput = errors.New("empty input")

	// ErrSegmentationFailure indicates a segment could not be cut on a structural
	// boundary and was hard cut instead. Degraded quality, never fatal.
	ErrSegmentationFailure = errors.New("segmentation failure")

	// ErrStageStarvation indicates a required stage produced zero successful results.
	ErrStageStarvation = errors.New("stage starvation")

	// ErrNoArtifacts indicates the generate stage produced no output artifact.
	ErrNoArtifacts = errors.New("no artifacts generated")

	// ErrCancelled indicates the run was cancelled externally.
	// It is a terminal outcome, not a failure.
	ErrCancelled = errors.New("cancelled")

	// Agent errors.

	// ErrAgentTransport indicates a network or process level error reaching an agent.
	ErrAgentTransport = errors.New("agent transport failure")

	// ErrAgentUnavailable indicates transport failures persisted after all retries.
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrAgentSemantic indicates the agent explicitly rejected its input.
	ErrAgentSemantic = errors.New("agent rejected input")

	// ErrAgentTimeout indicates the agent did not answer within the call timeout.
	ErrAgentTimeout = errors.New("agent timeout")
)

// ErrorKind returns the taxonomy name of a run-level error, or "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "EmptyInput"
	case errors.Is(err, ErrStageStarvation):
		return "StageStarvation"
	case errors.Is(err, ErrNoArtifacts):
		return "NoArtifacts"
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrSegmentationFailure):
		return "SegmentationFailure"
	case errors.Is(err, ErrAgentSemantic):
		return "AgentSemanticFailure"
	case errors.Is(err, ErrAgentUnavailable):
		return "AgentUnavailable"
	case errors.Is(err, ErrAgentTimeout):
		return "Timeout"
	case errors.Is(err, ErrAgentTransport):
		return "AgentTransportFailure"
	default:
		return "Internal"
	}
}
