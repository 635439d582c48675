package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
	"github.com/deepcode-labs/deepcode/internal/segmentation/layout"
)

// Verify interface compliance.
var _ driving.AgentService = (*ReferenceAgent)(nil)

// Entity attribute keys written by the reference agent.
const (
	AttrPriority = "priority"
	AttrSegment  = "segment"
	AttrKind     = "kind"
	AttrLevel    = "level"
	AttrFile     = "file"
	AttrPackage  = "package"
	AttrSection  = "section"
	ListSegments = "segments"
)

var (
	// ErrNoProse is returned when a segment holds only code, tables or headings.
	ErrNoProse = errors.New("segment has no prose")

	// ErrStageNotServed is returned for stages outside the agent's role.
	ErrStageNotServed = errors.New("stage not served")
)

var (
	urlPattern       = regexp.MustCompile(`https?://[^\s)\]>"'` + "`" + `]+`)
	arxivPattern     = regexp.MustCompile(`(?i)\barxiv:\s?\d{4}\.\d{4,5}(v\d+)?`)
	identPattern     = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_./]*(\\(\\))?)`")
	algorithmPattern = regexp.MustCompile(`(?i)^\**algorithm\s+\d+`)
	sentenceEnd      = regexp.MustCompile(`([.!?])\s+`)
)

// requirementCues mark sentences that state what the system must do.
// The value is the priority assigned to a matching sentence.
var requirementCues = []struct {
	word     string
	priority string
}{
	{"must", "high"},
	{"shall", "high"},
	{"require", "high"},
	{"requires", "high"},
	{"should", "normal"},
	{"need", "normal"},
	{"needs", "normal"},
	{"implement", "normal"},
	{"support", "normal"},
	{"propose", "normal"},
	{"present", "normal"},
}

// unplannedSections are headings that never become plan items.
var unplannedSections = map[string]bool{
	"abstract":          true,
	"references":        true,
	"bibliography":      true,
	"acknowledgements":  true,
	"acknowledgments":   true,
	"appendix":          true,
	"contents":          true,
	"table of contents": true,
}

type stageFunc func(req *domain.AgentRequest) (*domain.AgentPayload, error)

// ReferenceAgent answers every pipeline stage with deterministic text
// heuristics so that a pipeline can run end to end without a model.
type ReferenceAgent struct {
	stages   []domain.Stage
	handlers map[domain.Stage]stageFunc
}

// NewReferenceAgent creates an agent serving the given stages, or all
// stages when none are given.
func NewReferenceAgent(stages ...domain.Stage) *ReferenceAgent {
	all := map[domain.Stage]stageFunc{
		domain.StageIntent:        intentStage,
		domain.StageParse:         parseStage,
		domain.StagePlan:          planStage,
		domain.StageReferenceMine: referenceStage,
		domain.StageIndex:         indexStage,
		domain.StageGenerate:      generateStage,
	}
	if len(stages) == 0 {
		stages = domain.Stages()
	}

	a := &ReferenceAgent{handlers: make(map[domain.Stage]stageFunc, len(stages))}
	for _, s := range domain.Stages() {
		for _, want := range stages {
			if s == want {
				a.stages = append(a.stages, s)
				a.handlers[s] = all[s]
				break
			}
		}
	}
	return a
}

// Stages returns the served stages in execution order.
func (a *ReferenceAgent) Stages() []domain.Stage {
	return append([]domain.Stage(nil), a.stages...)
}

// Handle processes one request.
func (a *ReferenceAgent) Handle(ctx context.Context, req *domain.AgentRequest) (*domain.AgentPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, ok := a.handlers[req.Stage]
	if !ok {
		return nil, domain.NewAgentFailure(domain.FailureSemantic, fmt.Errorf("%w: %s", ErrStageNotServed, req.Stage))
	}
	if strings.TrimSpace(req.Segment.Text) == "" {
		return nil, domain.NewAgentFailure(domain.FailureSemantic, fmt.Errorf("%w: segment %d is blank", domain.ErrInvalidInput, req.Segment.Ordinal))
	}
	return h(req)
}

func intentStage(req *domain.AgentRequest) (*domain.AgentPayload, error) {
	sentences := sentences(prose(req.Segment.Text))
	if len(sentences) == 0 {
		return nil, domain.NewAgentFailure(domain.FailureSemantic, fmt.Errorf("%w: segment %d", ErrNoProse, req.Segment.Ordinal))
	}

	segment := strconv.Itoa(req.Segment.Ordinal)
	out := &domain.AgentPayload{}
	for _, s := range sentences {
		if p, ok := requirementPriority(s); ok {
			out.Entities = append(out.Entities, domain.EntityRecord{
				Type:       domain.EntityRequirement,
				Name:       clip(s, 160),
				Attributes: map[string]string{AttrPriority: p, AttrSegment: segment},
			})
		}
	}
	if len(out.Entities) == 0 {
		out.Entities = append(out.Entities, domain.EntityRecord{
			Type:       domain.EntityRequirement,
			Name:       clip(sentences[0], 160),
			Attributes: map[string]string{AttrPriority: "low", AttrSegment: segment},
		})
	}
	return out, nil
}

func parseStage(req *domain.AgentRequest) (*domain.AgentPayload, error) {
	segment := strconv.Itoa(req.Segment.Ordinal)
	out := &domain.AgentPayload{}
	for _, line := range layout.Scan(req.Segment.Text).Lines() {
		switch {
		case line.Heading:
			out.Entities = append(out.Entities, domain.EntityRecord{
				Type: domain.EntityStructure,
				Name: headingTitle(line.Text),
				Attributes: map[string]string{
					AttrKind:    "section",
					AttrLevel:   strconv.Itoa(line.Level),
					AttrSegment: segment,
				},
			})
		case !line.Protected && algorithmPattern.MatchString(strings.TrimSpace(line.Text)):
			out.Entities = append(out.Entities, domain.EntityRecord{
				Type:       domain.EntityStructure,
				Name:       clip(strings.ReplaceAll(strings.TrimSpace(line.Text), "*", ""), 120),
				Attributes: map[string]string{AttrKind: "algorithm", AttrSegment: segment},
			})
		}
	}
	if len(out.Entities) == 0 {
		out.Entities = append(out.Entities, domain.EntityRecord{
			Type:       domain.EntityStructure,
			Name:       fmt.Sprintf("Segment %d", req.Segment.Ordinal+1),
			Attributes: map[string]string{AttrKind: "body", AttrSegment: segment},
		})
	}
	return out, nil
}

func planStage(req *domain.AgentRequest) (*domain.AgentPayload, error) {
	segment := strconv.Itoa(req.Segment.Ordinal)
	out := &domain.AgentPayload{}
	for _, h := range layout.Headings(req.Segment.Text) {
		if h.Level > 3 {
			continue
		}
		title := headingTitle(h.Text)
		words := slugWords(title)
		if len(words) == 0 || unplannedSections[strings.Join(words, " ")] {
			continue
		}
		out.Entities = append(out.Entities, planItem(title, words, segment))
	}
	if len(out.Entities) == 0 && req.Segment.Ordinal == 0 {
		out.Entities = append(out.Entities, planItem("Core", []string{"core"}, segment))
	}
	return out, nil
}

func planItem(title string, words []string, segment string) domain.EntityRecord {
	if len(words) > 4 {
		words = words[:4]
	}
	pkg := strings.Join(words, "")
	if unicode.IsDigit(rune(pkg[0])) {
		pkg = "p" + pkg
	}
	return domain.EntityRecord{
		Type: domain.EntityPlanItem,
		Name: "Implement " + title,
		Key:  pkg,
		Attributes: map[string]string{
			AttrFile:    "internal/" + pkg + "/" + strings.Join(words, "_") + ".go",
			AttrPackage: pkg,
			AttrSection: title,
			AttrSegment: segment,
		},
	}
}

func referenceStage(req *domain.AgentRequest) (*domain.AgentPayload, error) {
	text := req.Segment.Text
	seen := make(map[string]bool)
	out := &domain.AgentPayload{}
	add := func(name, kind string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out.Entities = append(out.Entities, domain.EntityRecord{
			Type:       domain.EntityReference,
			Name:       name,
			Attributes: map[string]string{AttrKind: kind},
		})
	}

	for _, u := range urlPattern.FindAllString(text, -1) {
		add(strings.TrimRight(u, ".,;:"), "url")
	}
	for _, id := range arxivPattern.FindAllString(text, -1) {
		add(id, "arxiv")
	}
	for _, m := range identPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], "identifier")
	}
	return out, nil
}

func indexStage(req *domain.AgentRequest) (*domain.AgentPayload, error) {
	segment := strconv.Itoa(req.Segment.Ordinal)
	out := &domain.AgentPayload{}
	for i := range req.Context {
		ref := &req.Context[i]
		if ref.Type != domain.EntityReference || !strings.Contains(req.Segment.Text, ref.Name) {
			continue
		}
		out.Entities = append(out.Entities, domain.EntityRecord{
			Type:       domain.EntityIndexEntry,
			Name:       ref.Name,
			Attributes: map[string]string{AttrKind: ref.Attr(AttrKind)},
			Lists:      map[string][]string{ListSegments: {segment}},
		})
	}
	return out, nil
}

func generateStage(req *domain.AgentRequest) (*domain.AgentPayload, error) {
	segment := strconv.Itoa(req.Segment.Ordinal)
	var requirements, plan []string
	out := &domain.AgentPayload{}
	for i := range req.Context {
		e := &req.Context[i]
		switch e.Type {
		case domain.EntityRequirement:
			requirements = append(requirements, e.Name)
		case domain.EntityPlanItem:
			plan = append(plan, e.Name)
			if e.Attr(AttrSegment) != segment || e.Attr(AttrFile) == "" {
				continue
			}
			out.Artifacts = append(out.Artifacts, domain.Artifact{
				Path:     e.Attr(AttrFile),
				Content:  goStub(e.Attr(AttrPackage), e.Attr(AttrSection)),
				Language: "go",
			})
		}
	}
	if req.Segment.Ordinal == 0 {
		out.Artifacts = append(out.Artifacts, domain.Artifact{
			Path:     "README.md",
			Content:  readme(requirements, plan),
			Language: "markdown",
		})
	}
	return out, nil
}

func goStub(pkg, section string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Package %s implements %s.\n", pkg, section)
	fmt.Fprintf(&b, "package %s\n", pkg)
	return b.String()
}

func readme(requirements, plan []string) string {
	sort.Strings(requirements)
	sort.Strings(plan)
	var b strings.Builder
	b.WriteString("# Implementation plan\n")
	if len(requirements) > 0 {
		b.WriteString("\n## Requirements\n\n")
		for _, r := range requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(plan) > 0 {
		b.WriteString("\n## Plan\n\n")
		for _, p := range plan {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

// prose returns the text of lines outside headings and protected blocks.
func prose(text string) string {
	var b strings.Builder
	for _, line := range layout.Scan(text).Lines() {
		t := strings.TrimSpace(line.Text)
		if line.Heading || line.Protected || strings.HasPrefix(t, "```") ||
			strings.HasPrefix(t, "~~~") || strings.HasPrefix(t, "|") || strings.HasPrefix(t, "$$") {
			continue
		}
		if t == "" {
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(t)
		b.WriteByte(' ')
	}
	return b.String()
}

func sentences(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = sentenceEnd.ReplaceAllString(para, "$1\n")
		for _, s := range strings.Split(para, "\n") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func requirementPriority(sentence string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	best := ""
	for _, w := range words {
		for _, cue := range requirementCues {
			if w == cue.word && (best == "" || cue.priority == "high") {
				best = cue.priority
			}
		}
	}
	return best, best != ""
}

func headingTitle(line string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimLeft(strings.TrimSpace(line), "#"), "#"))
}

// slugWords lowercases a title into identifier words, dropping section
// numbers.
func slugWords(title string) []string {
	var words []string
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if strings.IndexFunc(w, unicode.IsLetter) < 0 {
			continue
		}
		if strings.IndexFunc(w, func(r rune) bool { return r > unicode.MaxASCII }) >= 0 {
			continue
		}
		words = append(words, w)
	}
	return words
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
