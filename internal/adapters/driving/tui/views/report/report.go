// Package report renders run reports for the terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Options controls what Render includes.
type Options struct {
	// Details lists every segment that did not succeed.
	Details bool

	// Artifacts lists generated file paths.
	Artifacts []domain.Artifact

	// OutputDir is where the artifacts were written.
	OutputDir string
}

// Render formats a run report.
func Render(s *styles.Styles, r *domain.RunReport, opts Options) string {
	if s == nil {
		s = styles.DefaultStyles()
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("Run "+r.RunID) + "  " + s.RunStatus(r.Status).Render(string(r.Status)) + "\n\n")

	field := func(label, value string) {
		b.WriteString(s.Label.Render(label) + value + "\n")
	}
	segments := fmt.Sprintf("%d", r.SegmentCount)
	if r.Degraded {
		segments += s.Warning.Render(" (degraded)")
	}
	field("Document", r.DocumentID)
	field("Segments", segments)
	field("Entities", fmt.Sprintf("%d", r.Entities))
	field("Artifacts", fmt.Sprintf("%d", r.Artifacts))
	if !r.StartedAt.IsZero() && !r.EndedAt.IsZero() {
		field("Duration", r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String())
	}
	if r.ErrorKind != "" {
		field("Error", s.Error.Render(r.ErrorKind+": "+r.Error))
	}
	if opts.OutputDir != "" {
		field("Output", opts.OutputDir)
	}

	if len(r.Stages) > 0 {
		b.WriteString("\n" + renderStages(s, r.Stages, opts.Details))
	}

	if len(opts.Artifacts) > 0 {
		b.WriteString("\n" + s.Subtitle.Render("Artifacts") + "\n")
		for i := range opts.Artifacts {
			b.WriteString("  " + opts.Artifacts[i].Path + "\n")
		}
	}

	return s.Box.Render(strings.TrimRight(b.String(), "\n"))
}

func renderStages(s *styles.Styles, stages []domain.StageReport, details bool) string {
	rows := []string{s.Subtitle.Render(fmt.Sprintf("%-16s%-18s%4s%9s%11s  %s", "Stage", "Agent", "OK", "Skipped", "Cancelled", "Notes"))}

	for i := range stages {
		st := &stages[i]
		if st.Disabled {
			rows = append(rows, s.Muted.Render(fmt.Sprintf("%-16s%-18s%4s%9s%11s  %s", st.Stage, "-", "-", "-", "-", "disabled")))
			continue
		}

		var notes []string
		if !st.Required {
			notes = append(notes, "optional")
		}
		if st.Starved {
			notes = append(notes, "starved")
		}
		line := fmt.Sprintf("%-16s%-18s%4d%9d%11d  %s",
			st.Stage, st.AgentID, st.Succeeded, st.Skipped, st.Cancelled, strings.Join(notes, ", "))

		style := s.Normal
		switch {
		case st.Starved && st.Required:
			style = s.Error
		case st.Starved || st.Skipped > 0:
			style = s.Warning
		}
		rows = append(rows, style.Render(strings.TrimRight(line, " ")))

		if details {
			for _, o := range st.Outcomes {
				if o.Status == domain.SegmentSucceeded {
					continue
				}
				detail := fmt.Sprintf("  segment %d: %s", o.Segment, o.Status)
				if o.Failure != "" {
					detail += fmt.Sprintf(" (%s, %d attempts)", o.Failure, o.Attempts)
				}
				if o.Error != "" {
					detail += ": " + o.Error
				}
				rows = append(rows, s.SegmentStatus(o.Status).Render(detail))
			}
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}
