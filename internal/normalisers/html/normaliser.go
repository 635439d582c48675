// Package html normalises HTML pages fetched from a URL into markdown-like
// text. Headings become "#" headings so segmentation can cut at sections.
package html

import (
	"context"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document to a document with Text populated.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawInput) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)

	return &domain.Document{
		Title: extractHTMLTitle(content, raw.URI),
		Text:  toText(content),
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"format":    "html",
		},
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag            = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	headingTags       = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]\s*>`)
	listItems         = regexp.MustCompile(`(?i)<li(\s[^>]*)?>`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|ul|ol|li|tr|blockquote|pre|table|section|article|figure)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|ul|ol|tr|blockquote|pre|table|section|article|figure)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
	multiNewlines     = regexp.MustCompile(`\n{3,}`)
)

// extractHTMLTitle extracts a title from the HTML content or falls back to filename.
func extractHTMLTitle(content, uri string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		title := strings.Join(strings.Fields(html.UnescapeString(matches[1])), " ")
		if title != "" {
			return title
		}
	}

	if m := headingTags.FindStringSubmatch(content); m != nil && m[1] == "1" {
		if title := inlineText(m[2]); title != "" {
			return title
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

// toText strips markup and keeps the document outline: headings become
// markdown headings and list items become "- " lines.
func toText(content string) string {
	// Remove non-content elements entirely
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, svgTag, navTag, htmlComments} {
		content = re.ReplaceAllString(content, "")
	}

	content = headingTags.ReplaceAllStringFunc(content, func(tag string) string {
		m := headingTags.FindStringSubmatch(tag)
		level := int(m[1][0] - '0')
		return "\n\n" + strings.Repeat("#", level) + " " + inlineText(m[2]) + "\n\n"
	})
	content = listItems.ReplaceAllString(content, "\n- ")

	content = openBlockElements.ReplaceAllString(content, "\n\n")
	content = blockElements.ReplaceAllString(content, "\n\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n\n")

	// Strip all remaining HTML tags
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

// inlineText flattens a fragment to a single line of text.
func inlineText(fragment string) string {
	text := html.UnescapeString(allTags.ReplaceAllString(fragment, " "))
	return strings.Join(strings.Fields(text), " ")
}
