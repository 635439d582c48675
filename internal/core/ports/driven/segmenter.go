package driven

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Segmenter splits a document into segments no longer than threshold characters.
// Concatenating the returned segment texts in ordinal order must reproduce
// the document text exactly. An empty document yields no segments.
type Segmenter interface {
	// Name returns the strategy name for logging and configuration.
	Name() string

	// Segment splits the document.
	Segment(ctx context.Context, doc *domain.Document, threshold int) ([]domain.Segment, error)
}

// SegmentProcessor transforms segments after splitting (e.g. digests).
// Processors are chained after a Segmenter in a pipeline.
type SegmentProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives the segments produced so far and returns the new set.
	Process(ctx context.Context, doc *domain.Document, segments []domain.Segment) ([]domain.Segment, error)
}
