package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50000, cfg.SegmentThreshold)
	assert.Equal(t, "intent", cfg.StageAgents[StageIntent])
	assert.True(t, cfg.Required(StageParse))
	assert.False(t, cfg.Required(StageIndex))
	assert.Len(t, cfg.EnabledStages(), 6)
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"zero threshold", func(c *PipelineConfig) { c.SegmentThreshold = 0 }},
		{"negative lookback", func(c *PipelineConfig) { c.LookbackChars = -1 }},
		{"zero digest", func(c *PipelineConfig) { c.DigestMaxChars = 0 }},
		{"zero timeout", func(c *PipelineConfig) { c.StageTimeout = 0 }},
		{"negative retries", func(c *PipelineConfig) { c.MaxRetries = -1 }},
		{"zero in-flight", func(c *PipelineConfig) { c.MaxInFlight = 0 }},
		{"negative rate", func(c *PipelineConfig) { c.CallsPerSecond = -1 }},
		{"generate disabled", func(c *PipelineConfig) { c.DisabledStages = []Stage{StageGenerate} }},
		{"unbound stage", func(c *PipelineConfig) { delete(c.StageAgents, StagePlan) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
		})
	}
}

func TestPipelineConfig_DisabledStageNeedsNoAgent(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.DisabledStages = []Stage{StageIndex}
	delete(cfg.StageAgents, StageIndex)

	require.NoError(t, cfg.Validate())
	assert.NotContains(t, cfg.EnabledStages(), StageIndex)
}

func TestPipelineConfig_TimeoutFor(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.StageTimeouts = map[Stage]time.Duration{StageGenerate: 10 * time.Minute}

	assert.Equal(t, 10*time.Minute, cfg.TimeoutFor(StageGenerate))
	assert.Equal(t, DefaultStageTimeout, cfg.TimeoutFor(StageParse))
}

func TestPipelineConfig_CloneIsDeep(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.OptionalStages = []Stage{StageReferenceMine}
	clone := cfg.Clone()
	clone.StageAgents[StageIntent] = "other"
	clone.OptionalStages[0] = StageIntent

	assert.Equal(t, "intent", cfg.StageAgents[StageIntent])
	assert.Equal(t, StageReferenceMine, cfg.OptionalStages[0])
}

func TestDefaultPipelineConfig_EveryStageRequired(t *testing.T) {
	cfg := DefaultPipelineConfig()

	assert.Empty(t, cfg.OptionalStages)
	for _, s := range Stages() {
		assert.True(t, cfg.Required(s), "stage %s", s)
	}
}

func TestAgentSpec_Validate(t *testing.T) {
	assert.NoError(t, (&AgentSpec{ID: "a", Command: "agent"}).Validate())
	assert.NoError(t, (&AgentSpec{ID: "a", URL: "http://localhost:9000"}).Validate())
	assert.ErrorIs(t, (&AgentSpec{Command: "agent"}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&AgentSpec{ID: "a"}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&AgentSpec{ID: "a", Command: "x", URL: "y"}).Validate(), ErrInvalidInput)
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunFailed.Terminal())
	assert.True(t, RunCancelled.Terminal())
	assert.False(t, RunRunning.Terminal())
	assert.False(t, RunPartiallyFailed.Terminal())
	assert.False(t, RunPending.Terminal())
}

func TestRunReport_Helpers(t *testing.T) {
	r := RunReport{Stages: []StageReport{
		{Stage: StageIntent, Skipped: 1, Outcomes: make([]SegmentOutcome, 3)},
		{Stage: StageParse, Skipped: 2},
	}}

	assert.Equal(t, 3, r.Skipped())
	require.NotNil(t, r.Stage(StageIntent))
	assert.Equal(t, 3, r.Stage(StageIntent).Dispatched())
	assert.Nil(t, r.Stage(StageGenerate))
}
