// Package metrics provides Prometheus metrics for the gateway and orchestrator.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

// Namespace prefixes every metric name.
const Namespace = "deepcode"

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Gateway metrics
	AgentCallsTotal    *prometheus.CounterVec
	AgentCallDuration  *prometheus.HistogramVec
	AgentCallAttempts  *prometheus.HistogramVec
	AgentCallsInFlight prometheus.Gauge

	// Orchestrator metrics
	SegmentsSkippedTotal *prometheus.CounterVec
	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AgentCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "agent_calls_total",
				Help:      "Total number of agent invocations by outcome",
			},
			[]string{"agent", "stage", "outcome"},
		),
		AgentCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "agent_call_duration_seconds",
				Help:      "Duration of agent invocations including retries",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		AgentCallAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "agent_call_attempts",
				Help:      "Number of attempts per agent invocation",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
			[]string{"stage"},
		),
		AgentCallsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "agent_calls_in_flight",
				Help:      "Number of agent invocations currently running",
			},
		),
		SegmentsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "segments_skipped_total",
				Help:      "Total number of segments skipped by stage and failure kind",
			},
			[]string{"stage", "kind"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "runs_total",
				Help:      "Total number of finished pipeline runs by status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}
}

// AgentCall records one finished gateway invocation.
func (m *Metrics) AgentCall(agentID string, stage domain.Stage, outcome string, attempts int, latency time.Duration) {
	m.AgentCallsTotal.WithLabelValues(agentID, stage.String(), outcome).Inc()
	m.AgentCallDuration.WithLabelValues(stage.String()).Observe(latency.Seconds())
	m.AgentCallAttempts.WithLabelValues(stage.String()).Observe(float64(attempts))
}

// InFlight adjusts the number of in-flight agent calls.
func (m *Metrics) InFlight(delta int) {
	m.AgentCallsInFlight.Add(float64(delta))
}

// SegmentSkipped records a segment skipped in a stage.
func (m *Metrics) SegmentSkipped(stage domain.Stage, kind domain.FailureKind) {
	m.SegmentsSkippedTotal.WithLabelValues(stage.String(), string(kind)).Inc()
}

// RunFinished records a terminal run status.
func (m *Metrics) RunFinished(status domain.RunStatus, duration time.Duration) {
	m.RunsTotal.WithLabelValues(string(status)).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Debug("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
