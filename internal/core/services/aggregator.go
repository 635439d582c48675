package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

// Aggregator merges agent results into a knowledge graph.
// Merging is commutative and idempotent: the same set of results yields the
// same graph in any order, and merging a result twice changes nothing.
type Aggregator struct{}

// NewAggregator creates an aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Merge returns a new graph holding graph plus the result's records.
// The input graph is not modified. Failed results merge nothing.
func (a *Aggregator) Merge(graph *domain.KnowledgeGraph, result *domain.AgentResult) *domain.KnowledgeGraph {
	out := graph.Snapshot()
	a.MergeInto(out, result)
	return out
}

// MergeInto merges the result into graph in place and returns the number of
// records merged.
func (a *Aggregator) MergeInto(graph *domain.KnowledgeGraph, result *domain.AgentResult) int {
	if !result.OK() {
		return 0
	}
	prov := domain.Provenance{Stage: result.Stage, Segment: result.SegmentOrdinal}

	n := 0
	for i := range result.Payload.Entities {
		rec := &result.Payload.Entities[i]
		if rec.Type == "" || (rec.Name == "" && rec.Key == "") {
			continue
		}
		graph.Upsert(entityFromRecord(rec, prov, result))
		n++
	}
	for i := range result.Payload.Artifacts {
		art := &result.Payload.Artifacts[i]
		if art.Path == "" {
			continue
		}
		graph.Upsert(entityFromArtifact(art, prov, result))
		n++
	}
	return n
}

// EntityID derives the content identifier of an entity. The key, or the
// name when no key is given, is compared case-insensitively with runs of
// whitespace collapsed.
func EntityID(entityType, key string) string {
	sum := sha256.Sum256([]byte(entityType + "\x00" + canonical(key)))
	return hex.EncodeToString(sum[:])
}

// ArtifactID derives the identifier of a generated file. Paths are compared
// exactly.
func ArtifactID(path string) string {
	sum := sha256.Sum256([]byte(domain.EntityArtifact + "\x00" + path))
	return hex.EncodeToString(sum[:])
}

func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func entityFromRecord(rec *domain.EntityRecord, prov domain.Provenance, result *domain.AgentResult) domain.Entity {
	key := rec.Key
	if key == "" {
		key = rec.Name
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = strings.TrimSpace(key)
	}

	e := domain.Entity{
		ID:         EntityID(rec.Type, key),
		Type:       rec.Type,
		Name:       name,
		Provenance: []domain.Provenance{prov},
	}
	if len(rec.Attributes) > 0 {
		e.Scalars = make(map[string]domain.Scalar, len(rec.Attributes))
		for k, v := range rec.Attributes {
			e.Scalars[k] = domain.Scalar{Value: v, At: result.CompletedAt}
		}
	}
	if len(rec.Lists) > 0 {
		e.Sets = make(map[string][]string, len(rec.Lists))
		for k, v := range rec.Lists {
			values := append([]string(nil), v...)
			sort.Strings(values)
			e.Sets[k] = values
		}
	}
	return e
}

func entityFromArtifact(art *domain.Artifact, prov domain.Provenance, result *domain.AgentResult) domain.Entity {
	path := strings.TrimSpace(art.Path)
	e := domain.Entity{
		ID:   ArtifactID(path),
		Type: domain.EntityArtifact,
		Name: path,
		Scalars: map[string]domain.Scalar{
			domain.ArtifactContentAttr: {Value: art.Content, At: result.CompletedAt},
		},
		Provenance: []domain.Provenance{prov},
	}
	if art.Language != "" {
		e.Scalars[domain.ArtifactLanguageAttr] = domain.Scalar{Value: art.Language, At: result.CompletedAt}
	}
	return e
}
