// Package tui provides the interactive progress view for pipeline runs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Pipeline runs and cancels pipeline runs.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	return nil
}
