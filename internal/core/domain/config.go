package domain

import (
	"fmt"
	"time"
)

// Pipeline configuration defaults.
const (
	DefaultSegmentThreshold   = 50000
	DefaultLookbackChars      = 10000
	DefaultDigestMaxChars     = 2000
	DefaultSegmenter          = "structural"
	DefaultStageTimeout       = 5 * time.Minute
	DefaultMaxRetries         = 3
	DefaultRetryInterval      = 500 * time.Millisecond
	DefaultMaxInFlight        = 4
	DefaultMaxContextEntities = 200
)

// PipelineConfig is the static configuration of a run.
// It is copied at orchestrator construction and never changes mid-run.
type PipelineConfig struct {
	// SegmentThreshold is the size in characters above which documents are split.
	SegmentThreshold int

	// LookbackChars bounds how far before the target size a boundary is searched for.
	LookbackChars int

	// DigestMaxChars bounds the size of a segment's context digest.
	DigestMaxChars int

	// Segmenter names the segmentation strategy.
	Segmenter string

	// StageTimeout is the default per-call timeout.
	StageTimeout time.Duration

	// StageTimeouts overrides StageTimeout per stage.
	StageTimeouts map[Stage]time.Duration

	// MaxRetries bounds retries of transient agent failures.
	MaxRetries int

	// RetryInterval is the initial backoff interval.
	RetryInterval time.Duration

	// MaxInFlight bounds concurrent agent calls.
	MaxInFlight int

	// CallsPerSecond caps the gateway call rate. Zero means unlimited.
	CallsPerSecond float64

	// MaxContextEntities bounds the entities sent as request context.
	MaxContextEntities int

	// StageAgents binds each stage to an agent ID.
	StageAgents map[Stage]string

	// OptionalStages may starve without failing the run. None by default.
	OptionalStages []Stage

	// DisabledStages are skipped entirely.
	DisabledStages []Stage
}

// DefaultPipelineConfig returns the default configuration. Each stage is
// bound to an agent named after the stage.
func DefaultPipelineConfig() PipelineConfig {
	agents := make(map[Stage]string, len(stageOrder))
	for _, s := range stageOrder {
		agents[s] = string(s)
	}
	return PipelineConfig{
		SegmentThreshold:   DefaultSegmentThreshold,
		LookbackChars:      DefaultLookbackChars,
		DigestMaxChars:     DefaultDigestMaxChars,
		Segmenter:          DefaultSegmenter,
		StageTimeout:       DefaultStageTimeout,
		MaxRetries:         DefaultMaxRetries,
		RetryInterval:      DefaultRetryInterval,
		MaxInFlight:        DefaultMaxInFlight,
		MaxContextEntities: DefaultMaxContextEntities,
		StageAgents:        agents,
	}
}

// Validate checks the configuration is usable.
func (c *PipelineConfig) Validate() error {
	if c.SegmentThreshold <= 0 {
		return fmt.Errorf("%w: segment threshold must be positive", ErrInvalidInput)
	}
	if c.LookbackChars < 0 {
		return fmt.Errorf("%w: lookback must not be negative", ErrInvalidInput)
	}
	if c.DigestMaxChars <= 0 {
		return fmt.Errorf("%w: digest size must be positive", ErrInvalidInput)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("%w: stage timeout must be positive", ErrInvalidInput)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidInput)
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("%w: max in-flight must be positive", ErrInvalidInput)
	}
	if c.CallsPerSecond < 0 {
		return fmt.Errorf("%w: calls per second must not be negative", ErrInvalidInput)
	}
	if c.Disabled(StageGenerate) {
		return fmt.Errorf("%w: the generate stage cannot be disabled", ErrInvalidInput)
	}
	for _, s := range c.EnabledStages() {
		if c.StageAgents[s] == "" {
			return fmt.Errorf("%w: no agent bound to stage %s", ErrInvalidInput, s)
		}
	}
	return nil
}

// TimeoutFor returns the call timeout for a stage.
func (c *PipelineConfig) TimeoutFor(stage Stage) time.Duration {
	if d, ok := c.StageTimeouts[stage]; ok && d > 0 {
		return d
	}
	return c.StageTimeout
}

// Required reports whether a stage must produce at least one success.
func (c *PipelineConfig) Required(stage Stage) bool {
	return !containsStage(c.OptionalStages, stage)
}

// Disabled reports whether a stage is skipped entirely.
func (c *PipelineConfig) Disabled(stage Stage) bool {
	return containsStage(c.DisabledStages, stage)
}

// EnabledStages returns the stages that will execute, in order.
func (c *PipelineConfig) EnabledStages() []Stage {
	out := make([]Stage, 0, len(stageOrder))
	for _, s := range stageOrder {
		if !c.Disabled(s) {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c PipelineConfig) Clone() PipelineConfig {
	out := c
	out.StageTimeouts = make(map[Stage]time.Duration, len(c.StageTimeouts))
	for k, v := range c.StageTimeouts {
		out.StageTimeouts[k] = v
	}
	out.StageAgents = make(map[Stage]string, len(c.StageAgents))
	for k, v := range c.StageAgents {
		out.StageAgents[k] = v
	}
	out.OptionalStages = append([]Stage(nil), c.OptionalStages...)
	out.DisabledStages = append([]Stage(nil), c.DisabledStages...)
	return out
}

func containsStage(list []Stage, stage Stage) bool {
	for _, s := range list {
		if s == stage {
			return true
		}
	}
	return false
}

// AgentSpec describes how to reach an agent process.
type AgentSpec struct {
	// ID is the stable agent identifier referenced by stage bindings.
	ID string

	// Command and Args start the agent as a child process speaking MCP over stdio.
	Command string
	Args    []string

	// URL reaches the agent over streamable HTTP instead of stdio.
	URL string

	// Tool overrides the tool name called on the agent. Defaults to the stage name.
	Tool string
}

// Validate checks the agent spec names exactly one transport.
func (s *AgentSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: agent id is required", ErrInvalidInput)
	}
	if (s.Command == "") == (s.URL == "") {
		return fmt.Errorf("%w: agent %s needs exactly one of command or url", ErrInvalidInput, s.ID)
	}
	return nil
}
