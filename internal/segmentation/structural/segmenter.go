// Package structural provides a segmenter that cuts documents on markdown
// structure: section headings, then paragraph breaks, then line breaks.
package structural

import (
	"context"
	"sort"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/segmentation/layout"
)

// Name is the registry name of this segmenter.
const Name = "structural"

// Segmenter cuts documents at the nearest structural boundary before the
// target size. It implements the driven.Segmenter interface.
type Segmenter struct {
	lookback int
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithLookback sets how many characters before the target size are searched
// for a boundary. The effective window is capped at half the target size.
func WithLookback(chars int) Option {
	return func(s *Segmenter) {
		if chars >= 0 {
			s.lookback = chars
		}
	}
}

// New creates a structural segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{lookback: domain.DefaultLookbackChars}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the segmenter name.
func (s *Segmenter) Name() string {
	return Name
}

// Segment splits the document into segments of at most threshold characters.
func (s *Segmenter) Segment(ctx context.Context, doc *domain.Document, threshold int) ([]domain.Segment, error) {
	if threshold <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if doc.Text == "" {
		return nil, nil
	}

	l := layout.Scan(doc.Text)
	total := l.Len()
	if total <= threshold {
		return l.Segments(doc.ID, []layout.Cut{{End: total, Boundary: domain.BoundaryEnd}}), nil
	}

	window := s.lookback
	if window > threshold/2 {
		window = threshold / 2
	}

	lines := l.Lines()
	var cuts []layout.Cut
	start := 0
	for total-start > threshold {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cut := bestCut(lines, start, start+threshold, window)
		cuts = append(cuts, cut)
		start = cut.End
	}
	cuts = append(cuts, layout.Cut{End: total, Boundary: domain.BoundaryEnd})

	return l.Segments(doc.ID, cuts), nil
}

func rank(kind domain.BoundaryKind) int {
	switch kind {
	case domain.BoundarySection:
		return 3
	case domain.BoundaryParagraph:
		return 2
	case domain.BoundaryLine:
		return 1
	}
	return 0
}

// bestCut picks the highest ranked boundary in [limit-window, limit] that is
// after start, preferring the one nearest to limit. Without one it cuts at
// limit and marks the segment degraded.
func bestCut(lines []layout.Line, start, limit, window int) layout.Cut {
	low := limit - window
	if low <= start {
		low = start + 1
	}

	// Last line starting at or before limit.
	i := sort.Search(len(lines), func(i int) bool { return lines[i].Start > limit }) - 1

	best := layout.Cut{End: limit, Boundary: domain.BoundaryHard, Degraded: true}
	bestRank := 0
	for ; i >= 0 && lines[i].Start >= low; i-- {
		kind, ok := lines[i].Boundary()
		if !ok {
			continue
		}
		if r := rank(kind); r > bestRank {
			best = layout.Cut{End: lines[i].Start, Boundary: kind}
			bestRank = r
		}
	}
	return best
}
