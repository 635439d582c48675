// Package digest provides a segment processor that attaches a rolling context
// digest to every segment after the first.
package digest

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/segmentation/layout"
)

// Name is the registry name of this processor.
const Name = "digest"

const (
	recentLeads   = 6
	leadMaxChars  = 200
	tailShare     = 4
	tailMaxChars  = 400
	outlineIndent = "  "
)

// Processor computes digests. It implements the driven.SegmentProcessor
// interface.
type Processor struct {
	maxChars int
}

// Option configures the processor.
type Option func(*Processor)

// WithMaxChars bounds the digest length in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// New creates a digest processor.
func New(opts ...Option) *Processor {
	p := &Processor{maxChars: domain.DefaultDigestMaxChars}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process sets Digest on each segment from the segments before it.
// The first segment never carries a digest.
func (p *Processor) Process(ctx context.Context, _ *domain.Document, segments []domain.Segment) ([]domain.Segment, error) {
	out := make([]domain.Segment, len(segments))
	copy(out, segments)

	var r rolling
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i == 0 {
			out[i].Digest = ""
		} else {
			out[i].Digest = r.render(out[i].Ordinal, p.maxChars)
		}
		r.absorb(&out[i])
	}
	return out, nil
}

// rolling accumulates what earlier segments contained.
type rolling struct {
	outline []string
	leads   []string
	tail    string
	prev    int
}

func (r *rolling) absorb(seg *domain.Segment) {
	for _, h := range layout.Headings(seg.Text) {
		indent := strings.Repeat(outlineIndent, h.Level-1)
		r.outline = append(r.outline, indent+strings.TrimSpace(strings.TrimLeft(h.Text, "#")))
	}
	if lead := leadSentence(seg.Text); lead != "" {
		r.leads = append(r.leads, fmt.Sprintf("[%d] %s", seg.Ordinal, lead))
		if len(r.leads) > recentLeads {
			r.leads = r.leads[len(r.leads)-recentLeads:]
		}
	}
	r.tail = lastRunes(collapse(seg.Text), tailMaxChars)
	r.prev = seg.Ordinal
}

// render builds the digest. The header, tail excerpt and recent leads take
// priority; the outline keeps its most recent headings that still fit.
func (r *rolling) render(ordinal, maxChars int) string {
	header := fmt.Sprintf("Segment %d continues from segment %d.", ordinal, r.prev)

	tail := lastRunes(r.tail, maxChars/tailShare)
	leads := strings.Join(r.leads, "\n")

	budget := maxChars - runeLen(header) - runeLen(tail) - runeLen(leads) - 64
	var outline []string
	for i := len(r.outline) - 1; i >= 0 && budget > 0; i-- {
		n := runeLen(r.outline[i]) + 1
		if n > budget {
			break
		}
		outline = append([]string{r.outline[i]}, outline...)
		budget -= n
	}

	var b strings.Builder
	b.WriteString(header)
	if len(outline) > 0 {
		b.WriteString("\nOutline:\n")
		b.WriteString(strings.Join(outline, "\n"))
	}
	if leads != "" {
		b.WriteString("\nEarlier segments:\n")
		b.WriteString(leads)
	}
	if tail != "" {
		b.WriteString("\nPrevious segment ends with:\n")
		b.WriteString(tail)
	}
	return truncate(b.String(), maxChars)
}

// leadSentence returns the first sentence of the first non-heading,
// non-blank line, truncated.
func leadSentence(text string) string {
	for _, line := range layout.Scan(text).Lines() {
		s := strings.TrimSpace(line.Text)
		if line.Blank || line.Heading || line.Protected || isBlockMarker(s) {
			continue
		}
		if i := strings.IndexAny(s, ".!?。"); i >= 0 {
			_, w := utf8.DecodeRuneInString(s[i:])
			s = s[:i+w]
		}
		return truncate(s, leadMaxChars)
	}
	return ""
}

func isBlockMarker(s string) bool {
	for _, prefix := range []string{"```", "~~~", "$$", "|"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
