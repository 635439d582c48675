package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Encodings recorded on ingested documents.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IngestService decodes raw input, normalises it and stores the document.
type IngestService struct {
	normalisers driven.NormaliserRegistry
	store       driven.SegmentStore
	now         func() time.Time
	newID       func() string
}

// NewIngestService creates an ingest service.
func NewIngestService(normalisers driven.NormaliserRegistry, store driven.SegmentStore) *IngestService {
	return &IngestService{
		normalisers: normalisers,
		store:       store,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Ingest turns raw input into a stored document.
func (s *IngestService) Ingest(ctx context.Context, raw *domain.RawInput) (*domain.Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: raw input is nil", domain.ErrInvalidInput)
	}
	if !raw.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidInput, raw.Source)
	}
	if isPDF(raw.Content) {
		return nil, fmt.Errorf("%w: %s is a PDF; convert it to text first", domain.ErrInvalidInput, describe(raw))
	}

	text, encoding := Decode(raw.Content)
	if encoding != EncodingUTF8 {
		logger.Warn("%s is not valid UTF-8; decoded as %s", describe(raw), encoding)
	}

	var doc *domain.Document
	if raw.Source == domain.SourceChat {
		doc = &domain.Document{Text: text, Title: chatTitle(text)}
	} else {
		mimeType := raw.MIMEType
		if mimeType == "" {
			mimeType = DetectMIMEType(raw.URI)
		}
		n, err := s.normalisers.Get(mimeType)
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", describe(raw), err)
		}
		decoded := *raw
		decoded.MIMEType = mimeType
		decoded.Content = []byte(text)
		doc, err = n.Normalise(ctx, &decoded)
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", describe(raw), err)
		}
	}

	doc.ID = s.newID()
	doc.Source = raw.Source
	doc.URI = raw.URI
	doc.Encoding = encoding
	doc.CreatedAt = s.now()
	if len(raw.Metadata) > 0 {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any, len(raw.Metadata))
		}
		for k, v := range raw.Metadata {
			doc.Metadata[k] = v
		}
	}
	if doc.Title == "" {
		doc.Title = filepath.Base(raw.URI)
	}

	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.Debug("ingested %s as document %s (%d characters, %s)", describe(raw), doc.ID, doc.Length(), encoding)
	return doc, nil
}

// Get retrieves a stored document.
func (s *IngestService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// Segments returns the stored segments of a document.
func (s *IngestService) Segments(ctx context.Context, documentID string) ([]domain.Segment, error) {
	return s.store.GetSegments(ctx, documentID)
}

// Decode converts raw bytes to text. UTF-8 is accepted as is with any byte
// order mark removed. Anything else is decoded as Windows-1252, which maps
// every byte to a character.
func Decode(content []byte) (string, string) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content), EncodingUTF8
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "�"), EncodingUTF8
	}
	return string(out), EncodingWindows1252
}

// DetectMIMEType guesses a text MIME type from a file name or URL.
func DetectMIMEType(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".md", ".markdown", ".mdx":
		return "text/markdown"
	case ".html", ".htm", ".xhtml":
		return "text/html"
	default:
		return "text/plain"
	}
}

func isPDF(content []byte) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n\x00"), []byte("%PDF"))
}

func chatTitle(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if r := []rune(line); len(r) > 80 {
		line = string(r[:80]) + "..."
	}
	return line
}

func describe(raw *domain.RawInput) string {
	if raw.URI != "" {
		return raw.URI
	}
	return string(raw.Source) + " input"
}
