package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestRunService(t *testing.T) {
	store := newFakeRunStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.SaveRun(ctx, &domain.PipelineRun{ID: "old", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.SaveRun(ctx, &domain.PipelineRun{ID: "new", CreatedAt: now}))
	require.NoError(t, store.SaveEntities(ctx, "new", []domain.Entity{{ID: "e1"}}))

	svc := NewRunService(store)

	runs, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)

	runs, err = svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = svc.List(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	run, err := svc.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "old", run.ID)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	entities, err := svc.Entities(ctx, "new")
	require.NoError(t, err)
	assert.Len(t, entities, 1)

	_, err = svc.Entities(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "old"))
	assert.ErrorIs(t, svc.Delete(ctx, "old"), domain.ErrNotFound)
}
