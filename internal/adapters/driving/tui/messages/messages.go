// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// RunEvent carries one orchestrator progress event into the model.
type RunEvent struct {
	Event domain.RunEvent
}

// RunFinished is sent once the run has returned.
type RunFinished struct {
	Result *domain.RunResult
	Err    error
}

// CancelRequested is sent when the user asks to stop the run.
type CancelRequested struct {
	RunID string
}
