package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
// Markdown structure is kept: the segmentation engine cuts at its headings.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

var (
	frontMatter = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n`)
	frontTitle  = regexp.MustCompile(`(?m)^title:\s*["']?(.*?)["']?\s*$`)
	heading     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

// Normalise converts a markdown document to a document with Text populated.
// Line endings are normalised and YAML front matter is removed.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawInput) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	var title string
	if m := frontMatter.FindStringSubmatch(text); m != nil {
		if t := frontTitle.FindStringSubmatch(m[1]); t != nil {
			title = strings.TrimSpace(t[1])
		}
		text = text[len(m[0]):]
	}
	if title == "" {
		title = extractMarkdownTitle(text, raw.URI)
	}

	return &domain.Document{
		Title: title,
		Text:  text,
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"format":    "markdown",
			"headings":  len(heading.FindAllStringIndex(text, -1)),
		},
	}, nil
}

// extractMarkdownTitle extracts a title from the first H1 heading outside
// code fences or falls back to the filename.
func extractMarkdownTitle(content, uri string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	// Fall back to filename
	filename := filepath.Base(uri)
	if filename == "." || filename == "/" {
		return ""
	}
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
