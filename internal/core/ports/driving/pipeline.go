package driving

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// PipelineService runs documents through the agent pipeline.
type PipelineService interface {
	// Run executes the full stage sequence for a document and blocks until
	// the run is terminal. The result is non-nil once the run has started,
	// including for failed and cancelled runs. The error is nil only when the
	// run completed; otherwise it wraps the sentinel of the failure kind.
	Run(ctx context.Context, doc *domain.Document, opts RunOptions) (*domain.RunResult, error)

	// Cancel requests cancellation of an active run.
	// Returns domain.ErrNotFound if the run is not active.
	Cancel(runID string) error

	// Status returns a live snapshot of an active run.
	// Returns domain.ErrNotFound if the run is not active.
	Status(runID string) (*domain.RunProgress, error)

	// Active returns the IDs of running pipelines, sorted.
	Active() []string
}

// RunOptions customise a single run.
type RunOptions struct {
	// RunID fixes the run identifier. Generated when empty.
	RunID string

	// Observer receives run events. Optional.
	Observer RunObserver
}

// RunObserver receives events from a running pipeline.
// OnEvent is called from the run's control goroutine and must not block.
type RunObserver interface {
	OnEvent(event domain.RunEvent)
}

// RunObserverFunc adapts a function to RunObserver.
type RunObserverFunc func(event domain.RunEvent)

// OnEvent calls f(event).
func (f RunObserverFunc) OnEvent(event domain.RunEvent) { f(event) }
