package driven

import (
	"context"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Normaliser transforms raw input into a document.
// Each normaliser handles specific MIME types (e.g., Markdown, HTML).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise converts raw input into a document with Text populated.
	// Raw content is already valid UTF-8 when Normalise is called.
	Normalise(ctx context.Context, raw *domain.RawInput) (*domain.Document, error)
}

// NormaliserRegistry selects a normaliser for a MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser.
	Register(n Normaliser)

	// Get returns the highest priority normaliser for the MIME type.
	// Returns domain.ErrUnsupportedType when none matches.
	Get(mimeType string) (Normaliser, error)

	// SupportedTypes returns every registered MIME type, sorted.
	SupportedTypes() []string
}
