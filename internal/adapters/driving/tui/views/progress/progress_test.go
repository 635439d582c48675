package progress

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/messages"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func send(v *View, e domain.RunEvent) *View {
	v, _ = v.Update(messages.RunEvent{Event: e})
	return v
}

func segmentDone(stage domain.Stage, ordinal int, status domain.SegmentStatus) domain.RunEvent {
	return domain.RunEvent{
		Type:    domain.EventSegmentFinished,
		Stage:   stage,
		Outcome: &domain.SegmentOutcome{Segment: ordinal, Status: status},
	}
}

func TestView_TracksStages(t *testing.T) {
	v := NewView(styles.PlainStyles(), "Attention paper")
	require.NotNil(t, v.Init())

	assert.Contains(t, v.View(), "segmenting")

	v = send(v, domain.RunEvent{Type: domain.EventSegmented, Progress: domain.RunProgress{SegmentCount: 3}})
	v = send(v, domain.RunEvent{Type: domain.EventStageStarted, Stage: domain.StageIntent})
	v = send(v, segmentDone(domain.StageIntent, 0, domain.SegmentSucceeded))
	v = send(v, segmentDone(domain.StageIntent, 1, domain.SegmentSkipped))

	view := v.View()
	assert.Contains(t, view, "Attention paper")
	assert.Contains(t, view, "3 segments")
	assert.Contains(t, view, "intent")
	assert.Contains(t, view, "2/3")
	assert.Contains(t, view, "1 skipped")
	assert.NotContains(t, view, "segmenting")

	v = send(v, segmentDone(domain.StageIntent, 2, domain.SegmentSucceeded))
	v = send(v, domain.RunEvent{Type: domain.EventStageFinished, Stage: domain.StageIntent})
	assert.Contains(t, v.View(), "! intent")
}

func TestView_Icons(t *testing.T) {
	v := NewView(styles.PlainStyles(), "doc")
	v = send(v, domain.RunEvent{Type: domain.EventSegmented, Progress: domain.RunProgress{SegmentCount: 1}})

	v = send(v, domain.RunEvent{Type: domain.EventStageStarted, Stage: domain.StageIntent})
	v = send(v, segmentDone(domain.StageIntent, 0, domain.SegmentSucceeded))
	v = send(v, domain.RunEvent{Type: domain.EventStageFinished, Stage: domain.StageIntent})

	v = send(v, domain.RunEvent{Type: domain.EventStageStarted, Stage: domain.StageParse})
	v = send(v, segmentDone(domain.StageParse, 0, domain.SegmentSkipped))
	v = send(v, domain.RunEvent{Type: domain.EventStageFinished, Stage: domain.StageParse})

	view := v.View()
	assert.Contains(t, view, "✓ intent")
	assert.Contains(t, view, "✗ parse")
}

func TestView_FinishedStopsSpinner(t *testing.T) {
	v := NewView(nil, "doc")
	v = send(v, domain.RunEvent{Type: domain.EventStageStarted, Stage: domain.StagePlan})
	v = send(v, domain.RunEvent{Type: domain.EventRunFinished})

	assert.True(t, v.Finished())
	assert.Contains(t, v.View(), "plan")

	_, cmd := v.Update(spinner.TickMsg{})
	assert.Nil(t, cmd)
}

func TestView_IgnoresUnknownStage(t *testing.T) {
	v := NewView(styles.PlainStyles(), "doc")
	v = send(v, segmentDone(domain.StageGenerate, 0, domain.SegmentSucceeded))

	assert.Empty(t, v.rows)
}

func TestView_SetDimensions(t *testing.T) {
	v := NewView(styles.PlainStyles(), "doc")

	v.SetDimensions(200, 40)
	assert.Equal(t, 40, v.bar.Width)

	v.SetDimensions(20, 40)
	assert.Equal(t, 10, v.bar.Width)
}
