package driving

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// IngestService turns raw input into stored documents.
type IngestService interface {
	// Ingest decodes and normalises raw input, stores the document, and
	// returns it. Input with no text is stored as an empty document.
	Ingest(ctx context.Context, raw *domain.RawInput) (*domain.Document, error)

	// Get retrieves a stored document.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Segments returns the stored segments of a document.
	Segments(ctx context.Context, documentID string) ([]domain.Segment, error)
}
