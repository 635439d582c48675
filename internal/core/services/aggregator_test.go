package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func okResult(stage domain.Stage, segment int, at time.Time, payload domain.AgentPayload) *domain.AgentResult {
	return &domain.AgentResult{
		AgentID:        string(stage),
		Stage:          stage,
		SegmentOrdinal: segment,
		Payload:        &payload,
		Attempts:       1,
		CompletedAt:    at,
	}
}

func TestEntityID_Canonical(t *testing.T) {
	assert.Equal(t, EntityID("reference", "Attention Is  All\tYou Need"), EntityID("reference", "attention is all you need"))
	assert.NotEqual(t, EntityID("reference", "x"), EntityID("requirement", "x"))
	assert.Len(t, EntityID("t", "k"), 64)
}

func TestArtifactID_ExactPath(t *testing.T) {
	assert.NotEqual(t, ArtifactID("README.md"), ArtifactID("readme.md"))
	assert.Equal(t, ArtifactID("src/a.go"), ArtifactID("src/a.go"))
}

func TestAggregator_SameEntityFromTwoSegments(t *testing.T) {
	agg := NewAggregator()
	g := domain.NewKnowledgeGraph()

	agg.MergeInto(g, okResult(domain.StageReferenceMine, 0, base, domain.AgentPayload{
		Entities: []domain.EntityRecord{{
			Type: domain.EntityReference, Name: "Attention Is All You Need",
			Attributes: map[string]string{"year": "2017"},
			Lists:      map[string][]string{"authors": {"Vaswani"}},
		}},
	}))
	agg.MergeInto(g, okResult(domain.StageReferenceMine, 2, base.Add(time.Second), domain.AgentPayload{
		Entities: []domain.EntityRecord{{
			Type: domain.EntityReference, Name: "attention is all you need",
			Attributes: map[string]string{"url": "https://arxiv.org/abs/1706.03762"},
			Lists:      map[string][]string{"authors": {"Shazeer", "Vaswani"}},
		}},
	}))

	require.Equal(t, 1, g.Len())
	e, ok := g.Get(EntityID(domain.EntityReference, "Attention Is All You Need"))
	require.True(t, ok)
	assert.Equal(t, "Attention Is All You Need", e.Name)
	assert.Equal(t, "2017", e.Attr("year"))
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", e.Attr("url"))
	assert.Equal(t, []string{"Shazeer", "Vaswani"}, e.Sets["authors"])
	assert.Equal(t, []domain.Provenance{
		{Stage: domain.StageReferenceMine, Segment: 0},
		{Stage: domain.StageReferenceMine, Segment: 2},
	}, e.Provenance)
}

func TestAggregator_KeyOverridesName(t *testing.T) {
	agg := NewAggregator()
	g := domain.NewKnowledgeGraph()

	agg.MergeInto(g, okResult(domain.StagePlan, 0, base, domain.AgentPayload{
		Entities: []domain.EntityRecord{
			{Type: domain.EntityPlanItem, Key: "step-1", Name: "Build encoder"},
			{Type: domain.EntityPlanItem, Key: "step-1", Name: "Implement encoder"},
		},
	}))

	require.Equal(t, 1, g.Len())
	e := g.Entities()[0]
	assert.Equal(t, "Build encoder", e.Name)
}

func TestAggregator_FailedResultMergesNothing(t *testing.T) {
	agg := NewAggregator()
	g := domain.NewKnowledgeGraph()

	n := agg.MergeInto(g, &domain.AgentResult{
		Stage:   domain.StageParse,
		Failure: domain.NewAgentFailure(domain.FailureSemantic, nil),
		Payload: &domain.AgentPayload{Entities: []domain.EntityRecord{{Type: "x", Name: "y"}}},
	})

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, g.Len())
}

func TestAggregator_SkipsIncompleteRecords(t *testing.T) {
	agg := NewAggregator()
	g := domain.NewKnowledgeGraph()

	n := agg.MergeInto(g, okResult(domain.StageParse, 0, base, domain.AgentPayload{
		Entities:  []domain.EntityRecord{{Name: "no type"}, {Type: "structure"}},
		Artifacts: []domain.Artifact{{Content: "no path"}},
	}))

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, g.Len())
}

func TestAggregator_MergeDoesNotMutateInput(t *testing.T) {
	agg := NewAggregator()
	g := domain.NewKnowledgeGraph()

	out := agg.Merge(g, okResult(domain.StageIntent, 0, base, domain.AgentPayload{
		Entities: []domain.EntityRecord{{Type: domain.EntityRequirement, Name: "train a model"}},
	}))

	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 1, out.Len())
}

func TestAggregator_Idempotent(t *testing.T) {
	agg := NewAggregator()
	r := okResult(domain.StageParse, 1, base, domain.AgentPayload{
		Entities:  []domain.EntityRecord{{Type: domain.EntityStructure, Name: "Section 3", Lists: map[string][]string{"eq": {"1", "2"}}}},
		Artifacts: []domain.Artifact{{Path: "a.go", Content: "package a"}},
	})

	once := agg.Merge(domain.NewKnowledgeGraph(), r)
	twice := agg.Merge(once, r)

	assert.True(t, once.Equal(twice))
}

func TestAggregator_Commutative(t *testing.T) {
	agg := NewAggregator()
	results := []*domain.AgentResult{
		okResult(domain.StageGenerate, 0, base, domain.AgentPayload{
			Artifacts: []domain.Artifact{{Path: "main.go", Content: "v1", Language: "go"}},
			Entities:  []domain.EntityRecord{{Type: "x", Name: "A", Attributes: map[string]string{"k": "a"}}},
		}),
		okResult(domain.StageGenerate, 1, base, domain.AgentPayload{
			Artifacts: []domain.Artifact{{Path: "main.go", Content: "v2"}},
			Entities:  []domain.EntityRecord{{Type: "x", Name: "a", Attributes: map[string]string{"k": "b"}}},
		}),
		okResult(domain.StageGenerate, 2, base.Add(-time.Minute), domain.AgentPayload{
			Artifacts: []domain.Artifact{{Path: "util.go", Content: "u"}},
		}),
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {1, 2, 0}}
	var graphs []*domain.KnowledgeGraph
	for _, order := range orders {
		g := domain.NewKnowledgeGraph()
		for _, i := range order {
			agg.MergeInto(g, results[i])
		}
		graphs = append(graphs, g)
	}
	for i := 1; i < len(graphs); i++ {
		assert.True(t, graphs[0].Equal(graphs[i]), "order %v differs", orders[i])
	}

	arts := graphs[0].Artifacts()
	require.Len(t, arts, 2)
	// Equal completion times break ties by value.
	assert.Equal(t, "v2", arts[0].Content)
	assert.Equal(t, "go", arts[0].Language)
}

func TestAggregator_FreshestArtifactWins(t *testing.T) {
	agg := NewAggregator()
	g := domain.NewKnowledgeGraph()

	agg.MergeInto(g, okResult(domain.StageGenerate, 1, base.Add(time.Minute), domain.AgentPayload{
		Artifacts: []domain.Artifact{{Path: "main.go", Content: "fresh"}},
	}))
	agg.MergeInto(g, okResult(domain.StageGenerate, 0, base, domain.AgentPayload{
		Artifacts: []domain.Artifact{{Path: "main.go", Content: "stale"}},
	}))

	arts := g.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, "fresh", arts[0].Content)
}
