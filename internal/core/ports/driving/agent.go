package driving

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// AgentService answers stage requests on the agent side of the protocol.
// The reference implementation is deterministic and needs no model.
type AgentService interface {
	// Stages returns the stages this service handles, in execution order.
	Stages() []domain.Stage

	// Handle processes one segment for one stage. Errors that are not
	// *domain.AgentFailure are reported as semantic failures.
	Handle(ctx context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error)
}
