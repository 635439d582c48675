// Package status provides the status bar shown under the progress view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/keymap"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// State represents the state of the run for display.
type State string

const (
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateFinished   State = "finished"
	StateError      State = "error"
)

// Bar displays run status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	progress domain.RunProgress
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateRunning,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

// renderLeft renders the left side of the status bar.
func (s *Bar) renderLeft() string {
	switch s.state {
	case StateCancelling:
		return s.styles.Warning.Render("Cancelling...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateFinished:
		return s.styles.RunStatus(s.progress.Status).Render(string(s.progress.Status))
	}

	p := s.progress
	if p.StageCount == 0 {
		return s.styles.Muted.Render("Starting...")
	}
	text := fmt.Sprintf("stage %d/%d", p.StageIndex+1, p.StageCount)
	if p.InFlight > 0 {
		text += fmt.Sprintf(" | %d in flight", p.InFlight)
	}
	if p.Skipped > 0 {
		text += fmt.Sprintf(" | %d skipped", p.Skipped)
	}
	text += fmt.Sprintf(" | %d entities", p.TotalEntities)
	return s.styles.Normal.Render(text)
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateRunning {
		bindings = s.keymap.RunningHelp()
	} else {
		bindings = s.keymap.StoppingHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// SetProgress records the latest run snapshot.
func (s *Bar) SetProgress(p domain.RunProgress) {
	s.progress = p
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}
