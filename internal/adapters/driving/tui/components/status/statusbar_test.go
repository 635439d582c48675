package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func newPlainBar() *Bar {
	return NewBar(styles.PlainStyles(), nil)
}

func TestBar_Starting(t *testing.T) {
	b := newPlainBar()

	assert.Equal(t, StateRunning, b.State())
	assert.Contains(t, b.View(), "Starting...")
	assert.Contains(t, b.View(), "ctrl+c: cancel run")
}

func TestBar_Progress(t *testing.T) {
	b := newPlainBar()
	b.SetProgress(domain.RunProgress{
		StageIndex:    2,
		StageCount:    6,
		InFlight:      3,
		Skipped:       1,
		TotalEntities: 12,
	})

	view := b.View()
	assert.Contains(t, view, "stage 3/6")
	assert.Contains(t, view, "3 in flight")
	assert.Contains(t, view, "1 skipped")
	assert.Contains(t, view, "12 entities")
}

func TestBar_States(t *testing.T) {
	b := newPlainBar()

	b.SetState(StateCancelling)
	assert.Contains(t, b.View(), "Cancelling...")

	b.SetState(StateError)
	b.SetMessage("agent unavailable")
	assert.Contains(t, b.View(), "Error: agent unavailable")
	assert.Contains(t, b.View(), "ctrl+c: quit")

	b.SetState(StateFinished)
	b.SetProgress(domain.RunProgress{Status: domain.RunCompleted})
	assert.Contains(t, b.View(), "completed")
}

func TestBar_NarrowWidth(t *testing.T) {
	b := newPlainBar()
	b.SetWidth(5)

	assert.NotEmpty(t, b.View())
}
