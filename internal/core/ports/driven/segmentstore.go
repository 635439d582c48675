package driven

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// SegmentStore persists ingested documents and their segments.
// Backed by SQLite for durable storage.
type SegmentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// SaveSegments replaces the segments of a document.
	SaveSegments(ctx context.Context, documentID string, segments []domain.Segment) error

	// GetSegments returns a document's segments in ordinal order.
	GetSegments(ctx context.Context, documentID string) ([]domain.Segment, error)

	// DeleteDocument removes a document and its segments.
	DeleteDocument(ctx context.Context, id string) error
}
