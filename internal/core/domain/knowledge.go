package domain

import (
	"sort"
	"time"
)

// Common entity types emitted by the built-in stages.
// Agents may emit any other type.
const (
	EntityRequirement = "requirement"
	EntityStructure   = "structure"
	EntityPlanItem    = "plan_item"
	EntityReference   = "reference"
	EntityIndexEntry  = "index_entry"
	EntityArtifact    = "artifact"
)

// Artifact attribute keys on entities of type EntityArtifact.
const (
	ArtifactContentAttr  = "content"
	ArtifactLanguageAttr = "language"
)

// Scalar is a single-valued attribute with the completion time of the
// result that wrote it.
type Scalar struct {
	Value string
	At    time.Time
}

// wins reports whether s should replace other under last-writer-wins.
// Equal timestamps are broken by value so the winner never depends on
// merge order.
func (s Scalar) wins(other Scalar) bool {
	if !s.At.Equal(other.At) {
		return s.At.After(other.At)
	}
	return s.Value > other.Value
}

// Provenance records where an entity was observed.
type Provenance struct {
	Stage   Stage
	Segment int
}

func provenanceLess(a, b Provenance) bool {
	if a.Stage != b.Stage {
		return a.Stage.Position() < b.Stage.Position()
	}
	return a.Segment < b.Segment
}

// Entity is a deduplicated record in the knowledge graph.
type Entity struct {
	// ID is the content-derived identifier.
	ID string

	// Type is the entity type.
	Type string

	// Name is the display name.
	Name string

	// Scalars are single-valued attributes.
	Scalars map[string]Scalar

	// Sets are set-valued attributes, sorted and de-duplicated.
	Sets map[string][]string

	// Provenance lists every (stage, segment) that produced the entity.
	Provenance []Provenance
}

// Attr returns the value of a scalar attribute.
func (e *Entity) Attr(key string) string {
	return e.Scalars[key].Value
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() Entity {
	out := Entity{
		ID:   e.ID,
		Type: e.Type,
		Name: e.Name,
	}
	if e.Scalars != nil {
		out.Scalars = make(map[string]Scalar, len(e.Scalars))
		for k, v := range e.Scalars {
			out.Scalars[k] = v
		}
	}
	if e.Sets != nil {
		out.Sets = make(map[string][]string, len(e.Sets))
		for k, v := range e.Sets {
			out.Sets[k] = append([]string(nil), v...)
		}
	}
	if e.Provenance != nil {
		out.Provenance = append([]Provenance(nil), e.Provenance...)
	}
	return out
}

// absorb merges other into e. Both must share an ID.
// The operation is commutative, associative and idempotent.
func (e *Entity) absorb(other *Entity) {
	if e.Name == "" || (other.Name != "" && other.Name < e.Name) {
		e.Name = other.Name
	}

	for k, v := range other.Scalars {
		if e.Scalars == nil {
			e.Scalars = make(map[string]Scalar)
		}
		cur, ok := e.Scalars[k]
		if !ok || v.wins(cur) {
			e.Scalars[k] = v
		}
	}

	for k, v := range other.Sets {
		if e.Sets == nil {
			e.Sets = make(map[string][]string)
		}
		e.Sets[k] = unionSorted(e.Sets[k], v)
	}

	e.Provenance = unionProvenance(e.Provenance, other.Provenance)
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func unionProvenance(a, b []Provenance) []Provenance {
	seen := make(map[Provenance]struct{}, len(a)+len(b))
	out := make([]Provenance, 0, len(a)+len(b))
	for _, list := range [][]Provenance{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return provenanceLess(out[i], out[j]) })
	return out
}

// KnowledgeGraph maps entity IDs to entity records.
// Entries are never removed during a run.
type KnowledgeGraph struct {
	entities map[string]*Entity
}

// NewKnowledgeGraph creates an empty graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{entities: make(map[string]*Entity)}
}

// Upsert merges the entity into the graph.
func (g *KnowledgeGraph) Upsert(e Entity) {
	if g.entities == nil {
		g.entities = make(map[string]*Entity)
	}
	incoming := e.Clone()
	if cur, ok := g.entities[e.ID]; ok {
		cur.absorb(&incoming)
		return
	}
	// Normalise through absorb so sets and provenance are sorted and unique.
	fresh := &Entity{ID: incoming.ID, Type: incoming.Type}
	fresh.absorb(&incoming)
	g.entities[e.ID] = fresh
}

// Get returns a copy of the entity with the given ID.
func (g *KnowledgeGraph) Get(id string) (Entity, bool) {
	e, ok := g.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.Clone(), true
}

// Len returns the number of entities.
func (g *KnowledgeGraph) Len() int {
	return len(g.entities)
}

// Entities returns copies of all entities sorted by ID.
func (g *KnowledgeGraph) Entities() []Entity {
	ids := make([]string, 0, len(g.entities))
	for id := range g.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.entities[id].Clone())
	}
	return out
}

// OfType returns copies of all entities of the given type sorted by ID.
func (g *KnowledgeGraph) OfType(entityType string) []Entity {
	var out []Entity
	for _, e := range g.Entities() {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out
}

// Artifacts returns the artifact entities as Artifacts sorted by path.
func (g *KnowledgeGraph) Artifacts() []Artifact {
	entities := g.OfType(EntityArtifact)
	out := make([]Artifact, 0, len(entities))
	for i := range entities {
		out = append(out, Artifact{
			Path:     entities[i].Name,
			Content:  entities[i].Attr(ArtifactContentAttr),
			Language: entities[i].Attr(ArtifactLanguageAttr),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// HasArtifactFrom reports whether any artifact was produced by stage.
func (g *KnowledgeGraph) HasArtifactFrom(stage Stage) bool {
	for _, e := range g.entities {
		if e.Type != EntityArtifact {
			continue
		}
		for _, p := range e.Provenance {
			if p.Stage == stage {
				return true
			}
		}
	}
	return false
}

// Snapshot returns a deep copy that is unaffected by later merges.
func (g *KnowledgeGraph) Snapshot() *KnowledgeGraph {
	out := &KnowledgeGraph{entities: make(map[string]*Entity, len(g.entities))}
	for id, e := range g.entities {
		c := e.Clone()
		out.entities[id] = &c
	}
	return out
}

// Equal reports whether two graphs hold the same entities.
func (g *KnowledgeGraph) Equal(other *KnowledgeGraph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for id, a := range g.entities {
		b, ok := other.entities[id]
		if !ok || !entityEqual(a, b) {
			return false
		}
	}
	return true
}

func entityEqual(a, b *Entity) bool {
	if a.ID != b.ID || a.Type != b.Type || a.Name != b.Name {
		return false
	}
	if len(a.Scalars) != len(b.Scalars) || len(a.Sets) != len(b.Sets) || len(a.Provenance) != len(b.Provenance) {
		return false
	}
	for k, av := range a.Scalars {
		bv, ok := b.Scalars[k]
		if !ok || av.Value != bv.Value || !av.At.Equal(bv.At) {
			return false
		}
	}
	for k, av := range a.Sets {
		bv, ok := b.Sets[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	for i := range a.Provenance {
		if a.Provenance[i] != b.Provenance[i] {
			return false
		}
	}
	return true
}
