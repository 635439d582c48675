package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestMetrics_AgentCall(t *testing.T) {
	m := New()

	m.AgentCall("planner", domain.StagePlan, "success", 1, 200*time.Millisecond)
	m.AgentCall("planner", domain.StagePlan, "success", 2, time.Second)
	m.AgentCall("planner", domain.StagePlan, "semantic", 1, 10*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.AgentCallsTotal.WithLabelValues("planner", "plan", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AgentCallsTotal.WithLabelValues("planner", "plan", "semantic")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.AgentCallDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AgentCallAttempts))
}

func TestMetrics_InFlight(t *testing.T) {
	m := New()

	m.InFlight(1)
	m.InFlight(1)
	m.InFlight(-1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.AgentCallsInFlight), 0)
}

func TestMetrics_RunsAndSkips(t *testing.T) {
	m := New()

	m.SegmentSkipped(domain.StageIndex, domain.FailureTimeout)
	m.RunFinished(domain.RunCompleted, 3*time.Second)
	m.RunFinished(domain.RunFailed, time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(m.SegmentsSkippedTotal.WithLabelValues("index", "timeout")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")), 0)

	expected := `
# HELP deepcode_runs_total Total number of finished pipeline runs by status
# TYPE deepcode_runs_total counter
deepcode_runs_total{status="completed"} 1
deepcode_runs_total{status="failed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "deepcode_runs_total"))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AgentCall("coder", domain.StageGenerate, "success", 1, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `deepcode_agent_calls_total{agent="coder",outcome="success",stage="generate"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.InFlight(1)

	assert.InDelta(t, 0, testutil.ToFloat64(b.AgentCallsInFlight), 0)
}
