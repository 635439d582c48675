package domain

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	// RunPending is a run that has been created but not started.
	RunPending RunStatus = "pending"

	// RunRunning is a run executing with no skipped segments so far.
	RunRunning RunStatus = "running"

	// RunPartiallyFailed is a running run that has skipped at least one segment.
	RunPartiallyFailed RunStatus = "partially_failed"

	// RunFailed is a run that ended on an unrecoverable error.
	RunFailed RunStatus = "failed"

	// RunCompleted is a run whose generate stage produced artifacts.
	RunCompleted RunStatus = "completed"

	// RunCancelled is a run stopped by an external cancellation request.
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunFailed, RunCompleted, RunCancelled:
		return true
	}
	return false
}

// SegmentStatus is the outcome of one segment in one stage.
type SegmentStatus string

const (
	// SegmentSucceeded means the agent returned a usable payload.
	SegmentSucceeded SegmentStatus = "succeeded"

	// SegmentSkipped means the agent failed and the segment was skipped for the stage.
	SegmentSkipped SegmentStatus = "skipped"

	// SegmentCancelled means the call was abandoned on cancellation.
	SegmentCancelled SegmentStatus = "cancelled"
)

// SegmentOutcome records what happened to one segment in one stage.
type SegmentOutcome struct {
	Segment  int
	Status   SegmentStatus
	Failure  FailureKind
	Error    string
	Attempts int
	Latency  time.Duration
}

// StageReport summarises one stage of a run.
type StageReport struct {
	Stage     Stage
	AgentID   string
	Required  bool
	Disabled  bool
	Starved   bool
	Succeeded int
	Skipped   int
	Cancelled int
	Outcomes  []SegmentOutcome
	StartedAt time.Time
	EndedAt   time.Time
}

// Dispatched returns the number of segment dispatches in the stage.
func (r *StageReport) Dispatched() int {
	return len(r.Outcomes)
}

// RunReport is the structured, user-visible account of a run.
type RunReport struct {
	RunID        string
	DocumentID   string
	Status       RunStatus
	ErrorKind    string
	Error        string
	Degraded     bool
	SegmentCount int
	Stages       []StageReport
	Entities     int
	Artifacts    int
	StartedAt    time.Time
	EndedAt      time.Time
}

// Skipped returns the total number of skipped segment dispatches.
func (r *RunReport) Skipped() int {
	n := 0
	for i := range r.Stages {
		n += r.Stages[i].Skipped
	}
	return n
}

// Stage returns the report for a stage, or nil.
func (r *RunReport) Stage(stage Stage) *StageReport {
	for i := range r.Stages {
		if r.Stages[i].Stage == stage {
			return &r.Stages[i]
		}
	}
	return nil
}

// PipelineRun is the top-level unit of work.
type PipelineRun struct {
	ID         string
	DocumentID string
	Source     SourceKind
	Title      string
	Stages     []Stage
	Status     RunStatus
	Report     *RunReport
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RunResult is what a finished run exposes to the presentation layer.
type RunResult struct {
	Run       PipelineRun
	Graph     *KnowledgeGraph
	Artifacts []Artifact
	Report    RunReport
}

// RunProgress is a live view of an active run.
type RunProgress struct {
	RunID         string
	Status        RunStatus
	Stage         Stage
	StageIndex    int
	StageCount    int
	SegmentCount  int
	Completed     int
	InFlight      int
	Skipped       int
	TotalEntities int
}

// RunEventType identifies progress events.
type RunEventType string

const (
	EventRunStarted      RunEventType = "run_started"
	EventSegmented       RunEventType = "segmented"
	EventStageStarted    RunEventType = "stage_started"
	EventSegmentFinished RunEventType = "segment_finished"
	EventStageFinished   RunEventType = "stage_finished"
	EventRunFinished     RunEventType = "run_finished"
)

// RunEvent is emitted to observers as a run progresses.
type RunEvent struct {
	Type     RunEventType
	RunID    string
	Stage    Stage
	Outcome  *SegmentOutcome
	Progress RunProgress
	Report   *RunReport
}
