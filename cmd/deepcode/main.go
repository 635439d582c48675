// Command deepcode turns papers and requirement documents into code by
// driving a pipeline of MCP agents over them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/deepcode-labs/deepcode/internal/adapters/driven/agent"
	mcpagent "github.com/deepcode-labs/deepcode/internal/adapters/driven/agent/mcp"
	configfile "github.com/deepcode-labs/deepcode/internal/adapters/driven/config/file"
	"github.com/deepcode-labs/deepcode/internal/adapters/driven/observability/invocationlog"
	"github.com/deepcode-labs/deepcode/internal/adapters/driven/observability/metrics"
	storagefile "github.com/deepcode-labs/deepcode/internal/adapters/driven/storage/file"
	"github.com/deepcode-labs/deepcode/internal/adapters/driven/storage/memory"
	"github.com/deepcode-labs/deepcode/internal/adapters/driven/storage/sqlite"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/cli"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
	"github.com/deepcode-labs/deepcode/internal/core/services"
	"github.com/deepcode-labs/deepcode/internal/logger"
	"github.com/deepcode-labs/deepcode/internal/normalisers"
	"github.com/deepcode-labs/deepcode/internal/segmentation"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// invocationLogFile is the invocation log inside the data directory, used
// when logging.invocation_log is not set.
const invocationLogFile = "invocations.jsonl"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetWiring(cli.Wiring{
		OpenSettings: openSettings,
		Build:        build,
		NewAgent: func(stages []domain.Stage) driving.AgentService {
			return services.NewReferenceAgent(stages...)
		},
	})

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func openSettings(configDir string) (driving.SettingsService, error) {
	store, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

// build wires the pipeline for one command invocation.
func build(ctx context.Context, opts cli.Options, settings *domain.AppSettings) (*cli.Services, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		closeAll() //nolint:errcheck
		return nil, err
	}

	var (
		runStore     driven.RunStore
		segmentStore driven.SegmentStore
		location     = "memory"
	)
	if opts.InMemory {
		runStore, segmentStore = memory.NewRunStore(), memory.NewSegmentStore()
	} else {
		store, err := sqlite.NewStore(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		closers = append(closers, store.Close)
		runStore, segmentStore, location = store.RunStore(), store.SegmentStore(), store.Path()
	}

	exe, err := os.Executable()
	if err != nil {
		return fail(fmt.Errorf("locating executable: %w", err))
	}
	specs := bindReferenceAgents(settings, exe)
	agents, err := agent.FromSpecs(specs, mcpagent.WithVersion(version))
	if err != nil {
		return fail(fmt.Errorf("configuring agents: %w", err))
	}
	closers = append(closers, agents.Close)

	m := metrics.New()
	if addr := settings.Metrics.Addr; addr != "" {
		go func() {
			if err := m.Serve(ctx, addr); err != nil {
				logger.Warn("metrics endpoint %s: %v", addr, err)
			}
		}()
	}

	logPath, err := invocationLogPath(opts, settings)
	if err != nil {
		return fail(err)
	}
	invocations, err := invocationlog.Open(logPath)
	if err != nil {
		return fail(fmt.Errorf("opening invocation log: %w", err))
	}
	closers = append(closers, invocations.Close)

	p := settings.Pipeline
	gateway := services.NewGateway(agents,
		services.WithMetrics(m),
		services.WithRetry(p.MaxRetries, p.RetryInterval),
		services.WithRateLimit(p.CallsPerSecond),
		services.WithInvocationLogger(invocations),
	)

	segmenter, err := segmentation.NewFromConfig(&p)
	if err != nil {
		return fail(err)
	}
	sink, err := storagefile.NewArtifactSink(settings.Output.Dir)
	if err != nil {
		return fail(fmt.Errorf("output directory: %w", err))
	}

	orchestrator, err := services.NewOrchestrator(p, segmenter, gateway, agents,
		services.WithRunStore(runStore),
		services.WithSegmentStore(segmentStore),
		services.WithArtifactSink(sink),
		services.WithRunMetrics(m),
	)
	if err != nil {
		return fail(err)
	}

	logger.Debug("store %s, output %s, invocations %s, %d agent(s)", location, sink.Root(), logPath, len(specs))
	return &cli.Services{
		Ingest:    services.NewIngestService(normalisers.NewDefaultRegistry(), segmentStore),
		Pipeline:  orchestrator,
		Runs:      services.NewRunService(runStore),
		OutputDir: sink.Root(),
		Close:     closeAll,
	}, nil
}

// invocationLogPath returns the configured invocation log, or the default
// file in the data directory.
func invocationLogPath(opts cli.Options, settings *domain.AppSettings) (string, error) {
	if path := settings.Logging.InvocationLog; path != "" {
		return path, nil
	}
	dir, err := sqlite.DataDir(opts.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, invocationLogFile), nil
}

// bindReferenceAgents returns the configured agents plus one built-in agent
// process for every agent ID an enabled stage is bound to but no spec
// declares. The built-in process serves all stages bound to that ID.
func bindReferenceAgents(settings *domain.AppSettings, exe string) []domain.AgentSpec {
	specs := append([]domain.AgentSpec(nil), settings.Agents...)

	roles := make(map[string][]string)
	for _, stage := range settings.Pipeline.EnabledStages() {
		id := settings.Pipeline.StageAgents[stage]
		if _, ok := settings.Agent(id); ok {
			continue
		}
		roles[id] = append(roles[id], string(stage))
	}

	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		specs = append(specs, domain.AgentSpec{
			ID:      id,
			Command: exe,
			Args:    []string{"agent", "serve", "--role", strings.Join(roles[id], ",")},
		})
	}
	return specs
}
