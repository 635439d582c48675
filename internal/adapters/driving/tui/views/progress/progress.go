// Package progress provides the live per-stage progress view of a run.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/messages"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// stageRow tracks one dispatched stage.
type stageRow struct {
	stage     domain.Stage
	completed int
	skipped   int
	cancelled int
	done      bool
}

func (r *stageRow) succeeded() int {
	return r.completed - r.skipped - r.cancelled
}

// View renders a spinner and a progress bar per stage.
type View struct {
	styles   *styles.Styles
	spinner  spinner.Model
	bar      progress.Model
	title    string
	segments int
	rows     []*stageRow
	finished bool
	width    int
}

// NewView creates a progress view for the document title.
func NewView(s *styles.Styles, title string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Subtitle

	return &View{
		styles:  s,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		title:   title,
		width:   80,
	}
}

// Init starts the spinner.
func (v *View) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update handles spinner ticks and run events.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if v.finished {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.RunEvent:
		v.apply(msg.Event)
	}
	return v, nil
}

func (v *View) apply(e domain.RunEvent) {
	switch e.Type {
	case domain.EventSegmented:
		v.segments = e.Progress.SegmentCount
	case domain.EventStageStarted:
		v.rows = append(v.rows, &stageRow{stage: e.Stage})
	case domain.EventSegmentFinished:
		row := v.current(e.Stage)
		if row == nil || e.Outcome == nil {
			return
		}
		row.completed++
		switch e.Outcome.Status {
		case domain.SegmentSkipped:
			row.skipped++
		case domain.SegmentCancelled:
			row.cancelled++
		}
	case domain.EventStageFinished:
		if row := v.current(e.Stage); row != nil {
			row.done = true
		}
	case domain.EventRunFinished:
		v.finished = true
	}
}

func (v *View) current(stage domain.Stage) *stageRow {
	for i := len(v.rows) - 1; i >= 0; i-- {
		if v.rows[i].stage == stage {
			return v.rows[i]
		}
	}
	return nil
}

// View renders the progress view.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("deepcode") + "  " + v.title + "\n")
	if v.segments > 0 {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%d segments", v.segments)) + "\n")
	}
	b.WriteString("\n")

	for _, row := range v.rows {
		b.WriteString(v.renderRow(row) + "\n")
	}
	if len(v.rows) == 0 && !v.finished {
		b.WriteString(v.spinner.View() + " segmenting\n")
	}
	return b.String()
}

func (v *View) renderRow(row *stageRow) string {
	icon := v.spinner.View()
	switch {
	case row.done && row.succeeded() == 0:
		icon = v.styles.Error.Render("✗")
	case row.done && row.skipped > 0:
		icon = v.styles.Warning.Render("!")
	case row.done:
		icon = v.styles.Success.Render("✓")
	case v.finished:
		icon = v.styles.Warning.Render("-")
	}

	percent := 0.0
	if v.segments > 0 {
		percent = float64(row.completed) / float64(v.segments)
	}
	line := fmt.Sprintf("%s %-16s %s %d/%d", icon, row.stage, v.bar.ViewAs(percent), row.completed, v.segments)
	if row.skipped > 0 {
		line += v.styles.Warning.Render(fmt.Sprintf("  %d skipped", row.skipped))
	}
	if row.cancelled > 0 {
		line += v.styles.Muted.Render(fmt.Sprintf("  %d cancelled", row.cancelled))
	}
	return line
}

// SetDimensions sets the view width.
func (v *View) SetDimensions(width, _ int) {
	v.width = width
	barWidth := width - 40
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 10 {
		barWidth = 10
	}
	v.bar.Width = barWidth
}

// Finished reports whether the run-finished event was seen.
func (v *View) Finished() bool {
	return v.finished
}
