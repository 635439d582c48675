// Package layout indexes document text by character and by line so that
// segmenters can cut on rune offsets and reason about markdown structure.
package layout

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

var headingPattern = regexp.MustCompile(`^#{1,6}[ \t]`)

// Line is one line of text including its trailing newline.
type Line struct {
	// Start is the rune offset of the first character.
	Start int

	// End is the rune offset one past the newline (or the end of text).
	End int

	// Text is the line content without the trailing newline.
	Text string

	// Heading is set for markdown ATX headings outside protected blocks.
	Heading bool

	// Level is the heading level, 1-6.
	Level int

	// Blank is set for lines containing only whitespace.
	Blank bool

	// Protected is set when the line continues a fenced code block, a table,
	// or a math block. A cut at the start of a protected line would split it.
	Protected bool

	// AfterBlank is set when the previous line is blank.
	AfterBlank bool
}

// Boundary returns the kind of boundary a cut at the start of the line
// produces. Protected lines and the first line are never boundaries.
func (l *Line) Boundary() (domain.BoundaryKind, bool) {
	if l.Protected || l.Start == 0 {
		return "", false
	}
	switch {
	case l.Heading:
		return domain.BoundarySection, true
	case l.AfterBlank:
		return domain.BoundaryParagraph, true
	default:
		return domain.BoundaryLine, true
	}
}

// Layout is an index over a document's text.
type Layout struct {
	text  string
	offs  []int
	lines []Line
}

// Scan indexes text. Rune offsets follow range-over-string semantics, so
// invalid UTF-8 bytes count as one character each.
func Scan(text string) *Layout {
	l := &Layout{text: text}
	l.offs = make([]int, 0, len(text)+1)
	for i := range text {
		l.offs = append(l.offs, i)
	}
	l.offs = append(l.offs, len(text))
	l.lines = scanLines(text)
	return l
}

// Len returns the text length in characters.
func (l *Layout) Len() int {
	return len(l.offs) - 1
}

// ByteOffset converts a rune offset to a byte offset.
func (l *Layout) ByteOffset(r int) int {
	return l.offs[r]
}

// Slice returns the text between two rune offsets.
func (l *Layout) Slice(start, end int) string {
	return l.text[l.offs[start]:l.offs[end]]
}

// Lines returns the indexed lines.
func (l *Layout) Lines() []Line {
	return l.lines
}

// Cut ends a segment at a rune offset.
type Cut struct {
	End      int
	Boundary domain.BoundaryKind
	Degraded bool
}

// Segments builds segments from ascending cut points. The last cut must end
// at Len().
func (l *Layout) Segments(documentID string, cuts []Cut) []domain.Segment {
	segments := make([]domain.Segment, 0, len(cuts))
	start := 0
	for i, c := range cuts {
		segments = append(segments, domain.Segment{
			DocumentID: documentID,
			Ordinal:    i,
			Start:      start,
			End:        c.End,
			ByteStart:  l.offs[start],
			ByteEnd:    l.offs[c.End],
			Text:       l.Slice(start, c.End),
			Boundary:   c.Boundary,
			Degraded:   c.Degraded,
		})
		start = c.End
	}
	return segments
}

// Headings returns the heading lines of text.
func Headings(text string) []Line {
	var out []Line
	for _, line := range scanLines(text) {
		if line.Heading {
			out = append(out, line)
		}
	}
	return out
}

type blockKind int

const (
	blockNone blockKind = iota
	blockFence
	blockMath
	blockTable
)

func scanLines(text string) []Line {
	var (
		lines     []Line
		rune0     int
		block     = blockNone
		fence     string
		prevBlank bool
	)

	for len(text) > 0 {
		raw := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			raw = text[:i+1]
		}
		text = text[len(raw):]

		content := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		trimmed := strings.TrimSpace(content)
		n := utf8.RuneCountInString(raw)

		line := Line{
			Start:      rune0,
			End:        rune0 + n,
			Text:       content,
			Blank:      trimmed == "",
			AfterBlank: prevBlank,
		}
		rune0 += n

		switch block {
		case blockFence:
			line.Protected = true
			if closesFence(trimmed, fence) {
				block = blockNone
			}
		case blockMath:
			line.Protected = true
			if strings.HasSuffix(trimmed, "$$") {
				block = blockNone
			}
		case blockTable:
			if strings.HasPrefix(trimmed, "|") {
				line.Protected = true
			} else {
				block = blockNone
			}
		}

		if block == blockNone && !line.Protected {
			switch run := fenceRun(trimmed); {
			case run != "":
				block, fence = blockFence, run
			case strings.HasPrefix(trimmed, "$$"):
				// A single-line $$...$$ block closes on the same line.
				if len(trimmed) < 4 || !strings.HasSuffix(trimmed, "$$") {
					block = blockMath
				}
			case strings.HasPrefix(trimmed, "|"):
				block = blockTable
			case headingPattern.MatchString(content):
				line.Heading = true
				line.Level = strings.IndexFunc(content, func(r rune) bool { return r != '#' })
			}
		}

		prevBlank = line.Blank
		lines = append(lines, line)
	}
	return lines
}

// fenceRun returns the opening run of three or more backticks or tildes.
func fenceRun(s string) string {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return ""
	}
	n := len(s) - len(strings.TrimLeft(s, s[:1]))
	if n < 3 {
		return ""
	}
	return s[:n]
}

// closesFence reports whether a line closes the fence opened by run. The
// closing line holds only the fence character, at least as many times.
func closesFence(trimmed, run string) bool {
	return len(trimmed) >= len(run) && strings.Trim(trimmed, run[:1]) == ""
}
