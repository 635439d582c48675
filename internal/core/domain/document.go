package domain

import (
	"time"
	"unicode/utf8"
)

// SourceKind identifies where a document's text came from.
type SourceKind string

const (
	// SourceURL is text fetched from a URL by an external fetcher.
	SourceURL SourceKind = "url"

	// SourceFile is text read from a local file.
	SourceFile SourceKind = "file"

	// SourceChat is a natural-language requirement typed by the user.
	SourceChat SourceKind = "chat"
)

// Valid reports whether the source kind is one of the known kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceURL, SourceFile, SourceChat:
		return true
	}
	return false
}

// Document is normalised input text with its source metadata.
// It is immutable once ingested.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is where the text came from.
	Source SourceKind

	// URI is the original location (file path, URL). Empty for chat input.
	URI string

	// Title is the human-readable title.
	Title string

	// Text is the full UTF-8 text.
	Text string

	// Encoding is the encoding the text was decoded from (e.g. "utf-8").
	Encoding string

	// Metadata contains normaliser-specific key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Length returns the document length in characters (runes).
func (d *Document) Length() int {
	return utf8.RuneCountInString(d.Text)
}

// IsEmpty reports whether the document carries no text.
func (d *Document) IsEmpty() bool {
	return d.Text == ""
}

// BoundaryKind records the kind of boundary a segment ends on.
type BoundaryKind string

const (
	// BoundaryEnd marks the last segment of a document.
	BoundaryEnd BoundaryKind = "end"

	// BoundarySection marks a cut before a heading.
	BoundarySection BoundaryKind = "section"

	// BoundaryParagraph marks a cut after a blank line.
	BoundaryParagraph BoundaryKind = "paragraph"

	// BoundaryLine marks a cut after a line break.
	BoundaryLine BoundaryKind = "line"

	// BoundaryHard marks a cut at the target size with no structural boundary.
	BoundaryHard BoundaryKind = "hard"
)

// Segment is a contiguous slice of a Document's text.
// Segments of one document are contiguous, non-overlapping and their texts
// concatenated in ordinal order reproduce the document text exactly.
type Segment struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Ordinal is the zero-based position within the document.
	Ordinal int

	// Start and End are character (rune) offsets into the document, [Start, End).
	Start int
	End   int

	// ByteStart and ByteEnd are byte offsets into the document, [ByteStart, ByteEnd).
	ByteStart int
	ByteEnd   int

	// Text is the segment content.
	Text string

	// Digest summarises all preceding segments. Empty for the first segment.
	Digest string

	// Boundary is the kind of boundary the segment ends on.
	Boundary BoundaryKind

	// Degraded is set when the segment had to be hard cut.
	Degraded bool
}

// Len returns the segment length in characters.
func (s *Segment) Len() int {
	return s.End - s.Start
}

// RawInput is unnormalised input handed to ingestion.
type RawInput struct {
	// Source is where the input came from.
	Source SourceKind

	// URI is the original location (file path, URL).
	URI string

	// MIMEType is the content type (e.g. "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller supplied key-value pairs.
	Metadata map[string]any
}
