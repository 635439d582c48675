// Package styles provides colour themes and styling for terminal output.
// The same styles render the live progress view and the final run report.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Theme defines the colour palette.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"), // Medium gray
		Success:   lipgloss.Color("#A6E3A1"), // Green
		Warning:   lipgloss.Color("#F9E2AF"), // Yellow
		Error:     lipgloss.Color("#F38BA8"), // Red
		Border:    lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Normal    lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	StatusBar lipgloss.Style
	Box       lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Label: lipgloss.NewStyle().
			Width(16).
			Foreground(theme.Muted),

		Normal: lipgloss.NewStyle(),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// PlainStyles returns styles that render no colour or border, for output
// that is not a terminal.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		theme:     DefaultTheme(),
		Title:     plain,
		Subtitle:  plain,
		Label:     plain.Width(16),
		Normal:    plain,
		Muted:     plain,
		Error:     plain,
		Success:   plain,
		Warning:   plain,
		StatusBar: plain,
		Box:       plain,
	}
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// RunStatus returns the style for a run status.
func (s *Styles) RunStatus(status domain.RunStatus) lipgloss.Style {
	switch status {
	case domain.RunCompleted:
		return s.Success
	case domain.RunPartiallyFailed, domain.RunCancelled:
		return s.Warning
	case domain.RunFailed:
		return s.Error
	default:
		return s.Subtitle
	}
}

// SegmentStatus returns the style for a segment outcome.
func (s *Styles) SegmentStatus(status domain.SegmentStatus) lipgloss.Style {
	switch status {
	case domain.SegmentSucceeded:
		return s.Success
	case domain.SegmentSkipped:
		return s.Error
	default:
		return s.Warning
	}
}
