package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestRunStore_SaveGetList(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.SaveRun(ctx, &domain.PipelineRun{
			ID:        id,
			Status:    domain.RunCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	run, err := store.GetRun(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_ReportIsCopied(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	run := &domain.PipelineRun{ID: "r", Report: &domain.RunReport{Status: domain.RunFailed}}
	require.NoError(t, store.SaveRun(ctx, run))
	run.Report.Status = domain.RunCompleted

	got, err := store.GetRun(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, got.Report.Status)
}

func TestRunStore_Entities(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, &domain.PipelineRun{ID: "r"}))

	entities := []domain.Entity{
		{ID: "b", Type: "reference", Sets: map[string][]string{"segments": {"1"}}},
		{ID: "a", Type: "requirement"},
	}
	require.NoError(t, store.SaveEntities(ctx, "r", entities))
	entities[0].Sets["segments"][0] = "mutated"

	got, err := store.GetEntities(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, []string{"1"}, got[1].Sets["segments"])

	assert.ErrorIs(t, store.SaveEntities(ctx, "missing", entities), domain.ErrNotFound)
	_, err = store.GetEntities(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.DeleteRun(ctx, "r"))
	_, err = store.GetRun(ctx, "r")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
