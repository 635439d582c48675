package driven

import (
	"time"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// InvocationLogger records agent invocations.
// Log must not block the caller.
type InvocationLogger interface {
	Log(inv domain.Invocation)
}

// Metrics records gateway and orchestrator measurements.
type Metrics interface {
	// AgentCall records one finished gateway invocation.
	AgentCall(agentID string, stage domain.Stage, outcome string, attempts int, latency time.Duration)

	// InFlight adjusts the number of in-flight agent calls.
	InFlight(delta int)

	// SegmentSkipped records a segment skipped in a stage.
	SegmentSkipped(stage domain.Stage, kind domain.FailureKind)

	// RunFinished records a terminal run status.
	RunFinished(status domain.RunStatus, duration time.Duration)
}
