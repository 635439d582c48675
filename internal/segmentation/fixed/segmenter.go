// Package fixed provides a fixed-size segmenter that ignores document structure.
package fixed

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/segmentation/layout"
)

// Name is the registry name of this segmenter.
const Name = "fixed"

// Segmenter splits documents into threshold-sized segments.
// It implements the driven.Segmenter interface.
// Every cut except the last is a hard cut, so those segments are degraded.
type Segmenter struct{}

// New creates a fixed-size segmenter.
func New() *Segmenter {
	return &Segmenter{}
}

// Name returns the segmenter name.
func (s *Segmenter) Name() string {
	return Name
}

// Segment splits the document content into segments of exactly threshold
// characters, with a shorter final segment.
func (s *Segmenter) Segment(ctx context.Context, doc *domain.Document, threshold int) ([]domain.Segment, error) {
	if threshold <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if doc.Text == "" {
		// Empty content produces no segments
		return nil, nil
	}

	l := layout.Scan(doc.Text)
	total := l.Len()

	cuts := make([]layout.Cut, 0, total/threshold+1)
	for end := threshold; end < total; end += threshold {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cuts = append(cuts, layout.Cut{End: end, Boundary: domain.BoundaryHard, Degraded: true})
	}
	cuts = append(cuts, layout.Cut{End: total, Boundary: domain.BoundaryEnd})

	return l.Segments(doc.ID, cuts), nil
}
