package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestConfigShow_Defaults(t *testing.T) {
	setupTestServices(t)

	out, _, err := executeRoot(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Config file: /tmp/deepcode/config.toml")
	assert.Contains(t, out, "segmenter:            structural")
	assert.Contains(t, out, "calls per second:     unlimited")
	assert.Contains(t, out, "index")
	assert.NotContains(t, out, "[optional]")
	assert.Contains(t, out, "built-in")
	assert.Contains(t, out, "Metrics:        off")
}

func TestConfigShow_Agents(t *testing.T) {
	ts := setupTestServices(t)
	s := domain.DefaultAppSettings()
	s.Pipeline.StageAgents[domain.StagePlan] = "planner"
	s.Pipeline.DisabledStages = []domain.Stage{domain.StageIndex}
	s.Pipeline.OptionalStages = []domain.Stage{domain.StageReferenceMine}
	s.Pipeline.StageTimeouts = map[domain.Stage]time.Duration{domain.StagePlan: 2 * time.Minute}
	s.Pipeline.CallsPerSecond = 2.5
	s.Agents = []domain.AgentSpec{
		{ID: "planner", Command: "python", Args: []string{"planner.py"}},
	}
	s.Metrics.Addr = ":9090"
	ts.settings.settings = &s

	out, _, err := executeRoot(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "planner (python planner.py) [timeout 2m0s]")
	assert.Contains(t, out, "[disabled]")
	assert.Contains(t, out, "[optional]")
	assert.Contains(t, out, "calls per second:     2.5")
	assert.Contains(t, out, "Metrics:        :9090")
}

func TestConfigShow_SettingsError(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.err = errors.New("bad toml")

	_, _, err := executeRoot(t, "config", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad toml")
}

func TestConfigInit_WritesDefaults(t *testing.T) {
	ts := setupTestServices(t)

	out, _, err := executeRoot(t, "config", "init")

	require.NoError(t, err)
	assert.True(t, ts.settings.wroteDefaults)
	assert.Contains(t, out, "Wrote defaults to /tmp/deepcode/config.toml")
}

func TestDescribeAgent(t *testing.T) {
	assert.Equal(t, "http://localhost:8090/mcp", describeAgent(&domain.AgentSpec{URL: "http://localhost:8090/mcp"}))
	assert.Equal(t, "deepcode agent serve", describeAgent(&domain.AgentSpec{Command: "deepcode", Args: []string{"agent", "serve"}}))
}
