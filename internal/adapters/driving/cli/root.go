// Package cli implements the deepcode command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// version is set at build time.
var version = "dev"

// annotationServices marks commands that need the pipeline services.
const annotationServices = "deepcode/services"

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigDir string
	DataDir   string
	Verbose   bool

	// InMemory keeps documents and runs in memory instead of the data directory.
	InMemory bool
}

// Services are the driving ports a pipeline command uses.
type Services struct {
	Ingest    driving.IngestService
	Pipeline  driving.PipelineService
	Runs      driving.RunService
	OutputDir string

	// Close releases stores and agent connections. Optional.
	Close func() error
}

// Wiring builds the application behind the command line.
type Wiring struct {
	// OpenSettings opens the settings stored in configDir.
	OpenSettings func(configDir string) (driving.SettingsService, error)

	// Build constructs the services for one invocation.
	Build func(ctx context.Context, opts Options, settings *domain.AppSettings) (*Services, error)

	// NewAgent returns the built-in agent serving the given stages.
	NewAgent func(stages []domain.Stage) driving.AgentService
}

var (
	options Options
	wiring  Wiring

	settingsService driving.SettingsService
	ingestService   driving.IngestService
	pipelineService driving.PipelineService
	runService      driving.RunService
	outputDir       string
	closeServices   func() error
)

var rootCmd = &cobra.Command{
	Use:   "deepcode",
	Short: "Turn research papers into code",
	Long: `deepcode reads a paper, a requirements document or a chat request and
drives a sequence of agents over it: intent, parse, plan, reference mining,
indexing and generation. Long documents are split into segments that are
processed concurrently and merged into one knowledge graph.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&options.ConfigDir, "config-dir", "", "configuration directory (default ~/.deepcode)")
	flags.StringVar(&options.DataDir, "data-dir", "", "data directory (default ~/.deepcode/data)")
	flags.BoolVar(&options.InMemory, "in-memory", false, "keep documents and runs in memory only")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "enable debug logging")
}

// SetWiring installs the constructors used to build services.
func SetWiring(w Wiring) {
	wiring = w
}

// SetServices installs ready-made services, bypassing Wiring.
func SetServices(s *Services) {
	if s == nil {
		ingestService, pipelineService, runService, outputDir, closeServices = nil, nil, nil, "", nil
		return
	}
	ingestService = s.Ingest
	pipelineService = s.Pipeline
	runService = s.Runs
	outputDir = s.OutputDir
	closeServices = s.Close
}

// SetSettingsService installs the settings service, bypassing Wiring.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// Execute runs the root command and releases the services it built.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := shutdown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	if options.Verbose {
		logger.SetVerbose(true)
	}
	if !needsServices(cmd) {
		return nil
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.Logging.Verbose {
		logger.SetVerbose(true)
	}

	if pipelineService != nil {
		return nil
	}
	if wiring.Build == nil {
		return errors.New("pipeline services not configured")
	}
	services, err := wiring.Build(commandContext(cmd), options, settings)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	SetServices(services)
	return nil
}

func shutdown() error {
	if closeServices == nil {
		return nil
	}
	closeFn := closeServices
	closeServices = nil
	return closeFn()
}

// loadSettings opens the settings service if needed and reads the settings.
func loadSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		if wiring.OpenSettings == nil {
			return nil, errors.New("settings not configured")
		}
		s, err := wiring.OpenSettings(options.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("opening settings: %w", err)
		}
		settingsService = s
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return settings, nil
}

func needsServices(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[annotationServices]
	return ok
}

func withServices() map[string]string {
	return map[string]string{annotationServices: "true"}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
