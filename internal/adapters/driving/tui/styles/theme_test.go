package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestRunStatus(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, s.Success, s.RunStatus(domain.RunCompleted))
	assert.Equal(t, s.Warning, s.RunStatus(domain.RunPartiallyFailed))
	assert.Equal(t, s.Warning, s.RunStatus(domain.RunCancelled))
	assert.Equal(t, s.Error, s.RunStatus(domain.RunFailed))
	assert.Equal(t, s.Subtitle, s.RunStatus(domain.RunRunning))
}

func TestSegmentStatus(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, s.Success, s.SegmentStatus(domain.SegmentSucceeded))
	assert.Equal(t, s.Error, s.SegmentStatus(domain.SegmentSkipped))
	assert.Equal(t, s.Warning, s.SegmentStatus(domain.SegmentCancelled))
}

func TestPlainStyles_RenderVerbatim(t *testing.T) {
	s := PlainStyles()

	assert.Equal(t, "completed", s.RunStatus(domain.RunCompleted).Render("completed"))
	assert.Equal(t, "text", s.Box.Render("text"))
}
