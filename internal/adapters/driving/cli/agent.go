package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mcpserver "github.com/deepcode-labs/deepcode/internal/adapters/driving/mcp"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

var (
	agentRoles []string
	agentAddr  string
	agentName  string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the built-in agent",
}

var agentServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built-in agent over MCP",
	Long: `Serve the built-in heuristic agent as an MCP server.

The agent exposes one tool per role, named after the stage. Without --addr
it speaks MCP over stdio, which is how the pipeline starts it as a child
process. With --addr it serves streamable HTTP.

Roles: intent, parse, plan, reference_mine, index, generate.`,
	Example: `  deepcode agent serve --role plan
  deepcode agent serve --role parse,plan --addr :8090`,
	Args: cobra.NoArgs,
	RunE: runAgentServe,
}

func init() {
	agentServeCmd.Flags().StringSliceVarP(&agentRoles, "role", "r", nil, "stages to serve (default all)")
	agentServeCmd.Flags().StringVar(&agentAddr, "addr", "", "serve streamable HTTP on this address instead of stdio")
	agentServeCmd.Flags().StringVar(&agentName, "name", "", "implementation name announced to clients")
	agentCmd.AddCommand(agentServeCmd)
	rootCmd.AddCommand(agentCmd)
}

func runAgentServe(cmd *cobra.Command, _ []string) error {
	if wiring.NewAgent == nil {
		return errors.New("agent not configured")
	}
	stages, err := parseRoles(agentRoles)
	if err != nil {
		return err
	}

	server, err := mcpserver.NewServer(&mcpserver.Ports{
		Agent: wiring.NewAgent(stages),
		Name:  agentName,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent server: %w", err)
	}

	ctx := commandContext(cmd)
	if agentAddr != "" {
		cmd.PrintErrf("Serving %s on %s\n", strings.Join(roleNames(stages), ", "), agentAddr)
		return server.RunHTTP(ctx, agentAddr)
	}
	return server.Run(ctx)
}

// parseRoles maps role names to stages in pipeline order.
// No roles means every stage.
func parseRoles(roles []string) ([]domain.Stage, error) {
	if len(roles) == 0 {
		return domain.Stages(), nil
	}
	seen := make(map[domain.Stage]bool, len(roles))
	for _, r := range roles {
		stage, err := domain.ParseStage(strings.TrimSpace(r))
		if err != nil {
			return nil, err
		}
		seen[stage] = true
	}
	out := make([]domain.Stage, 0, len(seen))
	for _, stage := range domain.Stages() {
		if seen[stage] {
			out = append(out, stage)
		}
	}
	return out, nil
}

func roleNames(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
