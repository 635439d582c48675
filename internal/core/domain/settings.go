package domain

// OutputSettings controls where generated artifacts are written.
type OutputSettings struct {
	// Dir is the root directory for artifacts. Each run writes to Dir/<run id>.
	// Empty disables writing.
	Dir string
}

// LoggingSettings controls diagnostics.
type LoggingSettings struct {
	// Verbose enables debug and info output on stderr.
	Verbose bool

	// InvocationLog is the JSON lines file recording every agent invocation.
	// Empty means invocations.jsonl in the data directory.
	InvocationLog string
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string
}

// AppSettings is the complete user configuration.
type AppSettings struct {
	Pipeline PipelineConfig
	Agents   []AgentSpec
	Output   OutputSettings
	Logging  LoggingSettings
	Metrics  MetricsSettings
}

// DefaultAppSettings returns the settings used when nothing is configured.
// Agents are left empty; callers bind the built-in reference agent.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Pipeline: DefaultPipelineConfig(),
	}
}

// Agent returns the spec with the given ID.
func (s *AppSettings) Agent(id string) (AgentSpec, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentSpec{}, false
}
