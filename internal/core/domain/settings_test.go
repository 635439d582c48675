package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()
	assert.NoError(t, s.Pipeline.Validate())
	assert.Empty(t, s.Agents)
	assert.Empty(t, s.Output.Dir)
	assert.False(t, s.Logging.Verbose)
}

func TestAppSettings_Agent(t *testing.T) {
	s := AppSettings{Agents: []AgentSpec{{ID: "a", Command: "x"}, {ID: "b", URL: "http://b"}}}

	a, ok := s.Agent("b")
	assert.True(t, ok)
	assert.Equal(t, "http://b", a.URL)

	_, ok = s.Agent("c")
	assert.False(t, ok)
}
