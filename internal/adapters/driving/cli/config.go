package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and initialise the configuration file.

Settings live in config.toml under the configuration directory. Agents are
declared as [agents.<id>] tables with either command and args (MCP over
stdio) or url (streamable HTTP), and bound to stages under [stages].
Stages bound to an undeclared agent use the built-in agent.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default values to the configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(); err != nil {
		return err
	}
	if err := settingsService.WriteDefaults(); err != nil {
		return fmt.Errorf("failed to write defaults: %w", err)
	}
	cmd.Printf("Wrote defaults to %s\n", settingsService.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings == nil {
		return errors.New("no settings")
	}
	p := &settings.Pipeline

	cmd.Printf("Config file: %s\n", settingsService.Path())
	cmd.Println()
	cmd.Println("Pipeline:")
	cmd.Printf("  segmenter:            %s\n", p.Segmenter)
	cmd.Printf("  segment threshold:    %d\n", p.SegmentThreshold)
	cmd.Printf("  lookback:             %d\n", p.LookbackChars)
	cmd.Printf("  digest max:           %d\n", p.DigestMaxChars)
	cmd.Printf("  stage timeout:        %s\n", p.StageTimeout)
	cmd.Printf("  max retries:          %d\n", p.MaxRetries)
	cmd.Printf("  retry interval:       %s\n", p.RetryInterval)
	cmd.Printf("  max in flight:        %d\n", p.MaxInFlight)
	if p.CallsPerSecond > 0 {
		cmd.Printf("  calls per second:     %g\n", p.CallsPerSecond)
	} else {
		cmd.Println("  calls per second:     unlimited")
	}
	cmd.Printf("  max context entities: %d\n", p.MaxContextEntities)

	cmd.Println()
	cmd.Println("Stages:")
	for _, stage := range domain.Stages() {
		var flags []string
		switch {
		case p.Disabled(stage):
			flags = append(flags, "disabled")
		case !p.Required(stage):
			flags = append(flags, "optional")
		}
		if d, ok := p.StageTimeouts[stage]; ok {
			flags = append(flags, "timeout "+d.String())
		}
		id := p.StageAgents[stage]
		agent := "built-in"
		if spec, ok := settings.Agent(id); ok {
			agent = describeAgent(&spec)
		}
		line := fmt.Sprintf("  %-15s %s (%s)", stage, id, agent)
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		cmd.Println(line)
	}

	cmd.Println()
	cmd.Printf("Output dir:     %s\n", orDefault(settings.Output.Dir, "~/.deepcode/output"))
	cmd.Printf("Invocation log: %s\n", orDefault(settings.Logging.InvocationLog, "<data dir>/invocations.jsonl"))
	cmd.Printf("Metrics:        %s\n", orDefault(settings.Metrics.Addr, "off"))
	return nil
}

func describeAgent(spec *domain.AgentSpec) string {
	if spec.URL != "" {
		return spec.URL
	}
	return strings.TrimSpace(spec.Command + " " + strings.Join(spec.Args, " "))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
