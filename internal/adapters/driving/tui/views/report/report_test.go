package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func sampleReport() *domain.RunReport {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	return &domain.RunReport{
		RunID:        "run-42",
		DocumentID:   "doc-1",
		Status:       domain.RunCompleted,
		SegmentCount: 3,
		Entities:     17,
		Artifacts:    2,
		StartedAt:    start,
		EndedAt:      start.Add(1500 * time.Millisecond),
		Stages: []domain.StageReport{
			{Stage: domain.StageIntent, AgentID: "reference", Required: true, Succeeded: 3},
			{Stage: domain.StageReferenceMine, Disabled: true},
			{
				Stage: domain.StageIndex, AgentID: "indexer", Succeeded: 2, Skipped: 1,
				Outcomes: []domain.SegmentOutcome{
					{Segment: 0, Status: domain.SegmentSucceeded},
					{Segment: 1, Status: domain.SegmentSkipped, Failure: domain.FailureTimeout, Attempts: 1, Error: "agent timeout"},
					{Segment: 2, Status: domain.SegmentSucceeded},
				},
			},
		},
	}
}

func TestRender_Summary(t *testing.T) {
	out := Render(styles.PlainStyles(), sampleReport(), Options{
		Artifacts: []domain.Artifact{{Path: "README.md"}, {Path: "internal/core/core.go"}},
		OutputDir: "/tmp/out/run-42",
	})

	assert.Contains(t, out, "Run run-42  completed")
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "17")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "/tmp/out/run-42")
	assert.Contains(t, out, "internal/core/core.go")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "optional")
	assert.NotContains(t, out, "segment 1")
	assert.NotContains(t, out, "Error")
}

func TestRender_Details(t *testing.T) {
	out := Render(styles.PlainStyles(), sampleReport(), Options{Details: true})

	assert.Contains(t, out, "segment 1: skipped (timeout, 1 attempts): agent timeout")
	assert.NotContains(t, out, "segment 0")
}

func TestRender_Failure(t *testing.T) {
	r := &domain.RunReport{
		RunID:     "run-9",
		Status:    domain.RunFailed,
		ErrorKind: "stage_starvation",
		Error:     "all 2 segments failed stage plan",
		Degraded:  true,
		Stages: []domain.StageReport{
			{Stage: domain.StagePlan, AgentID: "planner", Required: true, Skipped: 2, Starved: true},
		},
	}

	out := Render(styles.PlainStyles(), r, Options{})

	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "stage_starvation: all 2 segments failed stage plan")
	assert.Contains(t, out, "(degraded)")
	assert.Contains(t, out, "starved")
	assert.NotContains(t, out, "Duration")
}

func TestRender_DefaultStyles(t *testing.T) {
	out := Render(nil, sampleReport(), Options{})
	assert.Contains(t, out, "run-42")
}
