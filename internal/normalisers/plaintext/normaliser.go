// Package plaintext normalises plain text, TeX and source files. It is the
// fallback normaliser for every text type without a dedicated one.
package plaintext

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Priority is below every format-aware normaliser.
const Priority = 5

var texTitle = regexp.MustCompile(`\\title\{([^}]*)\}`)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normaliser keeps the text as is apart from line endings.
type Normaliser struct{}

// New creates a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes lists plain text and common source formats.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain", "text/x-tex", "text/x-rst", "text/csv",
		"text/x-go", "text/x-python", "text/x-rust", "text/x-java", "text/x-c", "text/x-c++",
		"text/yaml", "text/toml", "application/json", "application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return Priority
}

// Normalise converts CRLF and CR line endings to LF and drops a leading
// byte order mark.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawInput) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := strings.TrimPrefix(string(raw.Content), "\ufeff")
	text = lineEndings.Replace(text)

	return &domain.Document{
		Title: title(raw, text),
		Text:  text,
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"lines":     strings.Count(text, "\n"),
		},
	}, nil
}

// title prefers a caller supplied title, then a TeX \title, then the file name.
func title(raw *domain.RawInput, text string) string {
	if t, ok := raw.Metadata["title"].(string); ok && t != "" {
		return t
	}
	if raw.MIMEType == "text/x-tex" {
		if m := texTitle.FindStringSubmatch(text); m != nil {
			if t := strings.Join(strings.Fields(m[1]), " "); t != "" {
				return t
			}
		}
	}
	return titleFromURI(raw.URI)
}

// titleFromURI turns "/papers/sparse_attention-notes.txt" into
// "sparse attention notes".
func titleFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	}), " ")
}
