package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySegmentThreshold   = "pipeline.segment_threshold"
	keyLookbackChars      = "pipeline.lookback_chars"
	keyDigestMaxChars     = "pipeline.digest_max_chars"
	keySegmenter          = "pipeline.segmenter"
	keyStageTimeout       = "pipeline.stage_timeout"
	keyMaxRetries         = "pipeline.max_retries"
	keyRetryInterval      = "pipeline.retry_initial_interval"
	keyMaxInFlight        = "pipeline.max_in_flight"
	keyCallsPerSecond     = "pipeline.calls_per_second"
	keyMaxContextEntities = "pipeline.max_context_entities"
	keyOptionalStages     = "pipeline.optional_stages"
	keyDisabledStages     = "pipeline.disabled_stages"
	keyOutputDir          = "output.dir"
	keyVerbose            = "logging.verbose"
	keyInvocationLog      = "logging.invocation_log"
	keyMetricsAddr        = "metrics.addr"

	prefixStages   = "stages"
	prefixTimeouts = "timeouts"
	prefixAgents   = "agents"
)

// SettingsService maps the flat configuration store onto AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	p := defaults.Pipeline

	p.SegmentThreshold = s.getInt(keySegmentThreshold, p.SegmentThreshold)
	p.LookbackChars = s.getInt(keyLookbackChars, p.LookbackChars)
	p.DigestMaxChars = s.getInt(keyDigestMaxChars, p.DigestMaxChars)
	p.Segmenter = s.getString(keySegmenter, p.Segmenter)
	p.MaxRetries = s.getInt(keyMaxRetries, p.MaxRetries)
	p.MaxInFlight = s.getInt(keyMaxInFlight, p.MaxInFlight)
	p.MaxContextEntities = s.getInt(keyMaxContextEntities, p.MaxContextEntities)
	if _, ok := s.configStore.Get(keyCallsPerSecond); ok {
		p.CallsPerSecond = s.configStore.GetFloat(keyCallsPerSecond)
	}

	var err error
	if p.StageTimeout, err = s.getDuration(keyStageTimeout, p.StageTimeout); err != nil {
		return nil, err
	}
	if p.RetryInterval, err = s.getDuration(keyRetryInterval, p.RetryInterval); err != nil {
		return nil, err
	}
	if p.OptionalStages, err = s.getStages(keyOptionalStages, p.OptionalStages); err != nil {
		return nil, err
	}
	if p.DisabledStages, err = s.getStages(keyDisabledStages, p.DisabledStages); err != nil {
		return nil, err
	}

	for _, name := range s.configStore.Keys(prefixStages) {
		stage, err := domain.ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("config %s.%s: %w", prefixStages, name, err)
		}
		p.StageAgents[stage] = s.configStore.GetString(prefixStages + "." + name)
	}
	for _, name := range s.configStore.Keys(prefixTimeouts) {
		stage, err := domain.ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("config %s.%s: %w", prefixTimeouts, name, err)
		}
		d, err := s.getDuration(prefixTimeouts+"."+name, 0)
		if err != nil {
			return nil, err
		}
		if p.StageTimeouts == nil {
			p.StageTimeouts = make(map[domain.Stage]time.Duration)
		}
		p.StageTimeouts[stage] = d
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", s.configStore.Path(), err)
	}

	agents, err := s.agents()
	if err != nil {
		return nil, err
	}

	return &domain.AppSettings{
		Pipeline: p,
		Agents:   agents,
		Output:   domain.OutputSettings{Dir: s.configStore.GetString(keyOutputDir)},
		Logging: domain.LoggingSettings{
			Verbose:       s.configStore.GetBool(keyVerbose),
			InvocationLog: s.configStore.GetString(keyInvocationLog),
		},
		Metrics: domain.MetricsSettings{Addr: s.configStore.GetString(keyMetricsAddr)},
	}, nil
}

// agents reads agents.<id>.{command,args,url,tool}.
func (s *SettingsService) agents() ([]domain.AgentSpec, error) {
	ids := s.configStore.Keys(prefixAgents)
	sort.Strings(ids)
	out := make([]domain.AgentSpec, 0, len(ids))
	for _, id := range ids {
		prefix := prefixAgents + "." + id + "."
		spec := domain.AgentSpec{
			ID:      id,
			Command: s.configStore.GetString(prefix + "command"),
			Args:    s.configStore.GetStringSlice(prefix + "args"),
			URL:     s.configStore.GetString(prefix + "url"),
			Tool:    s.configStore.GetString(prefix + "tool"),
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("config %s: %w", prefixAgents+"."+id, err)
		}
		out = append(out, spec)
	}
	return out, nil
}

// WriteDefaults stores every default pipeline value not yet configured.
func (s *SettingsService) WriteDefaults() error {
	p := domain.DefaultPipelineConfig()
	values := []struct {
		key   string
		value any
	}{
		{keySegmentThreshold, p.SegmentThreshold},
		{keyLookbackChars, p.LookbackChars},
		{keyDigestMaxChars, p.DigestMaxChars},
		{keySegmenter, p.Segmenter},
		{keyStageTimeout, p.StageTimeout.String()},
		{keyMaxRetries, p.MaxRetries},
		{keyRetryInterval, p.RetryInterval.String()},
		{keyMaxInFlight, p.MaxInFlight},
		{keyCallsPerSecond, p.CallsPerSecond},
		{keyMaxContextEntities, p.MaxContextEntities},
		{keyOptionalStages, stageNames(p.OptionalStages)},
		{keyDisabledStages, stageNames(p.DisabledStages)},
	}
	for _, stage := range domain.Stages() {
		values = append(values, struct {
			key   string
			value any
		}{prefixStages + "." + string(stage), p.StageAgents[stage]})
	}

	for _, v := range values {
		if _, ok := s.configStore.Get(v.key); ok {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return s.configStore.Save()
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal, nil
	}
	d := s.configStore.GetDuration(key)
	if d <= 0 {
		return 0, fmt.Errorf("%w: config %s must be a positive duration such as \"90s\"", domain.ErrInvalidInput, key)
	}
	return d, nil
}

func (s *SettingsService) getStages(key string, defaultVal []domain.Stage) ([]domain.Stage, error) {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal, nil
	}
	names := s.configStore.GetStringSlice(key)
	out := make([]domain.Stage, 0, len(names))
	for _, name := range names {
		stage, err := domain.ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", key, err)
		}
		out = append(out, stage)
	}
	return out, nil
}

func stageNames(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
