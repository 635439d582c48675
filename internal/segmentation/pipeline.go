// Package segmentation splits oversized documents into segments that agents
// can process independently, and chains processors that enrich them.
package segmentation

import (
	"context"
	"fmt"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// Pipeline runs a segmenter followed by processors.
// It implements the driven.Segmenter interface.
type Pipeline struct {
	segmenter  driven.Segmenter
	processors []driven.SegmentProcessor
}

// NewPipeline creates a pipeline. Processors run in the order provided.
func NewPipeline(segmenter driven.Segmenter, processors ...driven.SegmentProcessor) *Pipeline {
	return &Pipeline{
		segmenter:  segmenter,
		processors: processors,
	}
}

// Name returns the underlying segmenter name.
func (p *Pipeline) Name() string {
	return p.segmenter.Name()
}

// Segment splits the document and runs every processor over the result.
// A document that fits in one segment skips the processors.
func (p *Pipeline) Segment(ctx context.Context, doc *domain.Document, threshold int) ([]domain.Segment, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	segments, err := p.segmenter.Segment(ctx, doc, threshold)
	if err != nil {
		return nil, fmt.Errorf("segmenter %s: %w", p.segmenter.Name(), err)
	}
	if len(segments) <= 1 {
		return segments, nil
	}

	for _, processor := range p.processors {
		segments, err = processor.Process(ctx, doc, segments)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	if err := verify(doc, segments); err != nil {
		return nil, err
	}

	for i := range segments {
		if segments[i].Degraded {
			logger.Warn("%v: document %s segment %d hard cut at offset %d",
				domain.ErrSegmentationFailure, doc.ID, segments[i].Ordinal, segments[i].End)
		}
	}
	logger.Debug("segmented document %s into %d segments with %s", doc.ID, len(segments), p.Name())

	return segments, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.SegmentProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// verify checks that segments tile the document text.
func verify(doc *domain.Document, segments []domain.Segment) error {
	pos := 0
	for i := range segments {
		s := &segments[i]
		if s.Ordinal != i || s.ByteStart != pos || s.ByteEnd < s.ByteStart || s.ByteEnd > len(doc.Text) ||
			doc.Text[s.ByteStart:s.ByteEnd] != s.Text {
			return fmt.Errorf("%w: segment %d does not tile the document", domain.ErrSegmentationFailure, i)
		}
		pos = s.ByteEnd
	}
	if pos != len(doc.Text) {
		return fmt.Errorf("%w: segments cover %d of %d bytes", domain.ErrSegmentationFailure, pos, len(doc.Text))
	}
	return nil
}
