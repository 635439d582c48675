package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_Length(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty", "", 0},
		{"ascii", "hello", 5},
		{"multibyte", "héllo wörld", 11},
		{"cjk", "文档", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Document{Text: tt.text}
			assert.Equal(t, tt.expected, doc.Length())
			assert.Equal(t, tt.text == "", doc.IsEmpty())
		})
	}
}

func TestSourceKind_Valid(t *testing.T) {
	assert.True(t, SourceURL.Valid())
	assert.True(t, SourceFile.Valid())
	assert.True(t, SourceChat.Valid())
	assert.False(t, SourceKind("ftp").Valid())
	assert.False(t, SourceKind("").Valid())
}

func TestSegment_Len(t *testing.T) {
	seg := Segment{Start: 100, End: 250}
	assert.Equal(t, 150, seg.Len())
}
