package fixed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestSegmenter_Name(t *testing.T) {
	if New().Name() != "fixed" {
		t.Errorf("expected name 'fixed', got '%s'", New().Name())
	}
}

func TestSegmenter_EmptyContent(t *testing.T) {
	segs, err := New().Segment(context.Background(), &domain.Document{ID: "d"}, 10)
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestSegmenter_ExactMultiple(t *testing.T) {
	text := strings.Repeat("a", 120000)

	segs, err := New().Segment(context.Background(), &domain.Document{ID: "d", Text: text}, 50000)
	require.NoError(t, err)

	require.Len(t, segs, 3)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, 50000, segs[0].End)
	assert.Equal(t, 100000, segs[1].End)
	assert.Equal(t, 120000, segs[2].End)
	assert.True(t, segs[0].Degraded)
	assert.True(t, segs[1].Degraded)
	assert.Equal(t, domain.BoundaryEnd, segs[2].Boundary)
	assert.False(t, segs[2].Degraded)
}

func TestSegmenter_SmallContent(t *testing.T) {
	segs, err := New().Segment(context.Background(), &domain.Document{ID: "d", Text: "short"}, 100)
	require.NoError(t, err)

	require.Len(t, segs, 1)
	assert.Equal(t, "short", segs[0].Text)
}

func TestSegmenter_MultibyteReconstruction(t *testing.T) {
	text := strings.Repeat("ñü€", 11)

	segs, err := New().Segment(context.Background(), &domain.Document{ID: "d", Text: text}, 4)
	require.NoError(t, err)

	var b strings.Builder
	for _, s := range segs {
		assert.LessOrEqual(t, s.Len(), 4)
		b.WriteString(s.Text)
	}
	assert.Equal(t, text, b.String())
	assert.Len(t, segs, 9)
}

func TestSegmenter_InvalidThreshold(t *testing.T) {
	_, err := New().Segment(context.Background(), &domain.Document{Text: "x"}, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
