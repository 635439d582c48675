package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.PipelineService = (*Orchestrator)(nil)

// AgentInvoker performs one agent invocation. Gateway implements it.
type AgentInvoker interface {
	Invoke(ctx context.Context, agentID string, req *domain.AgentRequest, timeout time.Duration) *domain.AgentResult
}

// Orchestrator drives documents through the stage sequence.
//
// Each stage fans out one dispatch per segment and waits at a barrier for
// all of them before the next stage starts. Dispatch goroutines only call
// the invoker; every merge into the knowledge graph happens on the run's
// control goroutine.
type Orchestrator struct {
	cfg        domain.PipelineConfig
	segmenter  driven.Segmenter
	invoker    AgentInvoker
	agents     driven.AgentRegistry
	aggregator *Aggregator

	runStore     driven.RunStore
	segmentStore driven.SegmentStore
	sink         driven.ArtifactSink
	metrics      driven.Metrics

	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	active map[string]*activeRun
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRunStore persists runs and their merged entities.
func WithRunStore(s driven.RunStore) OrchestratorOption {
	return func(o *Orchestrator) { o.runStore = s }
}

// WithSegmentStore persists the segments of each run's document.
func WithSegmentStore(s driven.SegmentStore) OrchestratorOption {
	return func(o *Orchestrator) { o.segmentStore = s }
}

// WithArtifactSink writes the artifacts of completed runs.
func WithArtifactSink(s driven.ArtifactSink) OrchestratorOption {
	return func(o *Orchestrator) { o.sink = s }
}

// WithRunMetrics records skipped segments and run outcomes.
func WithRunMetrics(m driven.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator. The configuration is copied and
// never changes afterwards.
func NewOrchestrator(
	cfg domain.PipelineConfig,
	segmenter driven.Segmenter,
	invoker AgentInvoker,
	agents driven.AgentRegistry,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if segmenter == nil || invoker == nil || agents == nil {
		return nil, fmt.Errorf("%w: segmenter, invoker and agent registry are required", domain.ErrInvalidInput)
	}
	o := &Orchestrator{
		cfg:        cfg.Clone(),
		segmenter:  segmenter,
		invoker:    invoker,
		agents:     agents,
		aggregator: NewAggregator(),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
		active:     make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// activeRun is the state of one run. Fields below mu are shared with Status;
// everything else belongs to the control goroutine.
type activeRun struct {
	run      domain.PipelineRun
	cancel   context.CancelFunc
	observer driving.RunObserver
	graph    *domain.KnowledgeGraph
	sem      *semaphore.Weighted
	segments []domain.Segment
	stages   []domain.StageReport
	inFlight atomic.Int32

	mu       sync.Mutex
	progress domain.RunProgress
}

func (r *activeRun) snapshot() domain.RunProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.InFlight = int(r.inFlight.Load())
	return p
}

func (r *activeRun) update(fn func(p *domain.RunProgress)) domain.RunProgress {
	r.mu.Lock()
	fn(&r.progress)
	r.mu.Unlock()
	return r.snapshot()
}

func (r *activeRun) emit(event domain.RunEvent) {
	if r.observer == nil {
		return
	}
	event.RunID = r.run.ID
	r.observer.OnEvent(event)
}

// Run executes the pipeline for doc and blocks until the run is terminal.
func (o *Orchestrator) Run(ctx context.Context, doc *domain.Document, opts driving.RunOptions) (*domain.RunResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}
	if err := o.checkAgents(); err != nil {
		return nil, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = o.newID()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	enabled := o.cfg.EnabledStages()
	now := o.now()
	ar := &activeRun{
		run: domain.PipelineRun{
			ID:         runID,
			DocumentID: doc.ID,
			Source:     doc.Source,
			Title:      doc.Title,
			Stages:     enabled,
			Status:     domain.RunRunning,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		cancel:   cancel,
		observer: opts.Observer,
		graph:    domain.NewKnowledgeGraph(),
		sem:      semaphore.NewWeighted(int64(o.cfg.MaxInFlight)),
		progress: domain.RunProgress{
			RunID:      runID,
			Status:     domain.RunRunning,
			StageCount: len(enabled),
		},
	}

	if err := o.register(ar); err != nil {
		return nil, err
	}
	defer o.unregister(runID)

	logger.Section("Run " + runID)
	o.saveRun(ctx, &ar.run)
	ar.emit(domain.RunEvent{Type: domain.EventRunStarted, Progress: ar.snapshot()})

	err := o.execute(runCtx, ar, doc)
	return o.finish(ctx, ar, err), err
}

// execute runs segmentation and every stage. It returns nil when the run
// completed and an error wrapping the terminal failure kind otherwise.
func (o *Orchestrator) execute(ctx context.Context, ar *activeRun, doc *domain.Document) error {
	if doc.IsEmpty() {
		return fmt.Errorf("%w: document %s has no text", domain.ErrEmptyInput, doc.ID)
	}

	segments, err := o.segmenter.Segment(ctx, doc, o.cfg.SegmentThreshold)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ErrCancelled
		}
		return fmt.Errorf("segment document: %w", err)
	}
	if len(segments) == 0 {
		return fmt.Errorf("%w: document %s produced no segments", domain.ErrEmptyInput, doc.ID)
	}
	ar.segments = segments

	if o.segmentStore != nil {
		if err := o.segmentStore.SaveSegments(ctx, doc.ID, segments); err != nil {
			logger.Warn("save segments for document %s: %v", doc.ID, err)
		}
	}
	logger.Info("document %s: %d characters in %d segments", doc.ID, doc.Length(), len(segments))
	ar.emit(domain.RunEvent{
		Type:     domain.EventSegmented,
		Progress: ar.update(func(p *domain.RunProgress) { p.SegmentCount = len(segments) }),
	})

	index := 0
	for _, stage := range domain.Stages() {
		if o.cfg.Disabled(stage) {
			ar.stages = append(ar.stages, domain.StageReport{Stage: stage, Disabled: true})
			logger.Debug("stage %s disabled", stage)
			continue
		}
		if ctx.Err() != nil {
			return domain.ErrCancelled
		}

		report := o.runStage(ctx, ar, stage, index)
		ar.stages = append(ar.stages, report)
		index++

		if ctx.Err() != nil {
			return domain.ErrCancelled
		}
		if report.Succeeded == 0 {
			ar.stages[len(ar.stages)-1].Starved = true
			if report.Required {
				return fmt.Errorf("%w: all %d segments failed stage %s", domain.ErrStageStarvation, len(segments), stage)
			}
			logger.Warn("optional stage %s produced nothing; continuing", stage)
		}
	}

	if !ar.graph.HasArtifactFrom(domain.StageGenerate) {
		return domain.ErrNoArtifacts
	}
	return nil
}

// runStage dispatches one request per segment and waits for all of them.
func (o *Orchestrator) runStage(ctx context.Context, ar *activeRun, stage domain.Stage, index int) domain.StageReport {
	agentID := o.cfg.StageAgents[stage]
	report := domain.StageReport{
		Stage:     stage,
		AgentID:   agentID,
		Required:  o.cfg.Required(stage),
		StartedAt: o.now(),
	}

	logger.Section("Stage " + string(stage))
	ar.emit(domain.RunEvent{
		Type:  domain.EventStageStarted,
		Stage: stage,
		Progress: ar.update(func(p *domain.RunProgress) {
			p.Stage = stage
			p.StageIndex = index
			p.Completed = 0
		}),
	})

	// Requests for this stage see the graph as it stood at the barrier.
	contextEntities := selectContext(ar.graph.Snapshot(), o.cfg.MaxContextEntities)
	timeout := o.cfg.TimeoutFor(stage)

	results := make(chan *domain.AgentResult, len(ar.segments))
	report.Outcomes = make([]domain.SegmentOutcome, 0, len(ar.segments))
	collect := func() {
		o.collect(ctx, ar, &report, <-results)
	}

	// Slots are taken here so at most MaxInFlight dispatch goroutines exist.
	// While every slot is busy the control goroutine merges finished results.
	for i := range ar.segments {
		req := &domain.AgentRequest{
			RunID:        ar.run.ID,
			Stage:        stage,
			Segment:      ar.segments[i],
			SegmentCount: len(ar.segments),
			Context:      contextEntities,
		}
		if ctx.Err() != nil {
			results <- o.cancelled(agentID, req, ctx.Err())
			continue
		}
		for !ar.sem.TryAcquire(1) {
			collect()
		}
		go o.dispatch(ctx, ar, agentID, req, timeout, results)
	}
	for len(report.Outcomes) < len(ar.segments) {
		collect()
	}

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Segment < report.Outcomes[j].Segment
	})
	report.EndedAt = o.now()

	logger.Info("stage %s: %d succeeded, %d skipped, %d cancelled",
		stage, report.Succeeded, report.Skipped, report.Cancelled)
	stageReport := report
	ar.emit(domain.RunEvent{
		Type:     domain.EventStageFinished,
		Stage:    stage,
		Progress: ar.snapshot(),
		Report:   &domain.RunReport{RunID: ar.run.ID, Stages: []domain.StageReport{stageReport}},
	})
	return report
}

// dispatch invokes the agent in a slot taken by the caller, frees the slot
// and sends exactly one result.
func (o *Orchestrator) dispatch(
	ctx context.Context,
	ar *activeRun,
	agentID string,
	req *domain.AgentRequest,
	timeout time.Duration,
	results chan<- *domain.AgentResult,
) {
	ar.inFlight.Add(1)
	res := o.invoker.Invoke(ctx, agentID, req, timeout)
	ar.inFlight.Add(-1)
	ar.sem.Release(1)
	results <- res
}

func (o *Orchestrator) cancelled(agentID string, req *domain.AgentRequest, err error) *domain.AgentResult {
	return &domain.AgentResult{
		AgentID:        agentID,
		Stage:          req.Stage,
		SegmentOrdinal: req.Segment.Ordinal,
		Failure:        domain.NewAgentFailure(domain.FailureCancelled, err),
		CompletedAt:    o.now(),
	}
}

// collect absorbs one result and reports the segment's outcome.
func (o *Orchestrator) collect(ctx context.Context, ar *activeRun, report *domain.StageReport, res *domain.AgentResult) {
	outcome := o.absorb(ctx, ar, report, res)
	report.Outcomes = append(report.Outcomes, outcome)

	progress := ar.update(func(p *domain.RunProgress) {
		p.Completed++
		p.TotalEntities = ar.graph.Len()
		if outcome.Status == domain.SegmentSkipped {
			p.Skipped++
			if p.Status == domain.RunRunning {
				p.Status = domain.RunPartiallyFailed
			}
		}
	})
	ar.emit(domain.RunEvent{
		Type:     domain.EventSegmentFinished,
		Stage:    report.Stage,
		Outcome:  &outcome,
		Progress: progress,
	})
}

// absorb records one result on the control goroutine.
func (o *Orchestrator) absorb(ctx context.Context, ar *activeRun, report *domain.StageReport, res *domain.AgentResult) domain.SegmentOutcome {
	outcome := domain.SegmentOutcome{
		Segment:  res.SegmentOrdinal,
		Attempts: res.Attempts,
		Latency:  res.Latency,
	}

	switch {
	case res.OK():
		o.aggregator.MergeInto(ar.graph, res)
		outcome.Status = domain.SegmentSucceeded
		report.Succeeded++

	case res.Failure != nil && res.Failure.Kind == domain.FailureCancelled && ctx.Err() != nil:
		outcome.Status = domain.SegmentCancelled
		outcome.Failure = res.Failure.Kind
		outcome.Error = res.Failure.Error()
		report.Cancelled++

	default:
		failure := res.Failure
		if failure == nil {
			failure = domain.NewAgentFailure(domain.FailureSemantic, errors.New("empty result"))
		}
		outcome.Status = domain.SegmentSkipped
		outcome.Failure = failure.Kind
		outcome.Error = failure.Error()
		report.Skipped++
		logger.Warn("stage %s segment %d skipped: %v", report.Stage, res.SegmentOrdinal, failure)
		if o.metrics != nil {
			o.metrics.SegmentSkipped(report.Stage, failure.Kind)
		}
		if ar.run.Status == domain.RunRunning {
			ar.run.Status = domain.RunPartiallyFailed
		}
	}
	return outcome
}

// finish builds the result, persists the run and notifies the observer.
func (o *Orchestrator) finish(ctx context.Context, ar *activeRun, runErr error) *domain.RunResult {
	status := domain.RunCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, domain.ErrCancelled):
		status = domain.RunCancelled
	default:
		status = domain.RunFailed
	}

	artifacts := ar.graph.Artifacts()
	ended := o.now()
	report := domain.RunReport{
		RunID:        ar.run.ID,
		DocumentID:   ar.run.DocumentID,
		Status:       status,
		ErrorKind:    domain.ErrorKind(runErr),
		SegmentCount: len(ar.segments),
		Stages:       ar.stages,
		Entities:     ar.graph.Len(),
		Artifacts:    len(artifacts),
		StartedAt:    ar.run.CreatedAt,
		EndedAt:      ended,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	report.Degraded = report.Skipped() > 0
	for i := range ar.segments {
		if ar.segments[i].Degraded {
			report.Degraded = true
		}
	}
	for i := range ar.stages {
		if ar.stages[i].Starved {
			report.Degraded = true
		}
	}

	ar.run.Status = status
	ar.run.UpdatedAt = ended
	ar.run.Report = &report

	// Persistence uses a context that survives run cancellation.
	persistCtx := context.WithoutCancel(ctx)
	o.saveRun(persistCtx, &ar.run)
	if o.runStore != nil {
		if err := o.runStore.SaveEntities(persistCtx, ar.run.ID, ar.graph.Entities()); err != nil {
			logger.Warn("save entities for run %s: %v", ar.run.ID, err)
		}
	}
	if status == domain.RunCompleted && o.sink != nil {
		if where, err := o.sink.Write(persistCtx, ar.run.ID, artifacts); err != nil {
			logger.Error("write artifacts for run %s: %v", ar.run.ID, err)
		} else {
			logger.Info("wrote %d artifacts to %s", len(artifacts), where)
		}
	}
	if o.metrics != nil {
		o.metrics.RunFinished(status, ended.Sub(ar.run.CreatedAt))
	}

	logger.Info("run %s finished: %s", ar.run.ID, status)
	progress := ar.update(func(p *domain.RunProgress) {
		p.Status = status
		p.TotalEntities = ar.graph.Len()
	})
	ar.emit(domain.RunEvent{Type: domain.EventRunFinished, Progress: progress, Report: &report})

	return &domain.RunResult{
		Run:       ar.run,
		Graph:     ar.graph,
		Artifacts: artifacts,
		Report:    report,
	}
}

// Cancel requests cancellation of an active run.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.RLock()
	ar, ok := o.active[runID]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	logger.Info("cancelling run %s", runID)
	ar.cancel()
	return nil
}

// Status returns a live snapshot of an active run.
func (o *Orchestrator) Status(runID string) (*domain.RunProgress, error) {
	o.mu.RLock()
	ar, ok := o.active[runID]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	p := ar.snapshot()
	return &p, nil
}

// Active returns the IDs of running pipelines.
func (o *Orchestrator) Active() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Config returns a copy of the orchestrator's configuration.
func (o *Orchestrator) Config() domain.PipelineConfig {
	return o.cfg.Clone()
}

func (o *Orchestrator) checkAgents() error {
	for _, stage := range o.cfg.EnabledStages() {
		id := o.cfg.StageAgents[stage]
		if _, err := o.agents.Get(id); err != nil {
			return fmt.Errorf("stage %s agent %q: %w", stage, id, err)
		}
	}
	return nil
}

func (o *Orchestrator) register(ar *activeRun) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[ar.run.ID]; ok {
		return fmt.Errorf("run %s: %w", ar.run.ID, domain.ErrRunInProgress)
	}
	o.active[ar.run.ID] = ar
	return nil
}

func (o *Orchestrator) unregister(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, runID)
}

func (o *Orchestrator) saveRun(ctx context.Context, run *domain.PipelineRun) {
	if o.runStore == nil {
		return
	}
	if err := o.runStore.SaveRun(ctx, run); err != nil {
		logger.Warn("save run %s: %v", run.ID, err)
	}
}

// selectContext picks at most limit non-artifact entities, preferring those
// produced by the latest stages.
func selectContext(graph *domain.KnowledgeGraph, limit int) []domain.Entity {
	var out []domain.Entity
	for _, e := range graph.Entities() {
		if e.Type != domain.EntityArtifact {
			out = append(out, e)
		}
	}
	if limit <= 0 || len(out) <= limit {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return latestStage(&out[i]) > latestStage(&out[j])
	})
	return out[:limit]
}

func latestStage(e *domain.Entity) int {
	latest := -1
	for _, p := range e.Provenance {
		if pos := p.Stage.Position(); pos > latest {
			latest = pos
		}
	}
	return latest
}
