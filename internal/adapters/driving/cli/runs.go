package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/views/report"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past pipeline runs",
	Long:  `List, show and delete the runs recorded in the run store.`,
}

var runsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List recent runs",
	Args:        cobra.NoArgs,
	Annotations: withServices(),
	RunE:        runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:         "show [run-id]",
	Short:       "Show the report of a run",
	Args:        cobra.ExactArgs(1),
	Annotations: withServices(),
	RunE:        runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:         "delete [run-id]",
	Short:       "Delete a run and its entities",
	Args:        cobra.ExactArgs(1),
	Annotations: withServices(),
	RunE:        runRunsDelete,
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs (0 for all)")
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "output runs as JSON")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}
	runs, err := runService.List(commandContext(cmd), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal runs: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	cmd.Printf("%-36s  %-16s  %-6s  %-19s  %s\n", "ID", "STATUS", "SOURCE", "CREATED", "TITLE")
	for i := range runs {
		r := &runs[i]
		cmd.Printf("%-36s  %-16s  %-6s  %-19s  %s\n",
			r.ID, r.Status, r.Source, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Title)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}
	ctx := commandContext(cmd)
	run, err := runService.Get(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	cmd.Printf("Title:   %s\n", run.Title)
	cmd.Printf("Source:  %s\n", run.Source)
	cmd.Printf("Created: %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Report == nil {
		cmd.Printf("Status:  %s\n", run.Status)
		return nil
	}
	cmd.Println()

	entities, err := runService.Entities(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to get entities: %w", err)
	}
	graph := domain.NewKnowledgeGraph()
	for i := range entities {
		graph.Upsert(entities[i])
	}
	opts := report.Options{Details: true, Artifacts: graph.Artifacts()}
	cmd.Println(report.Render(styles.PlainStyles(), run.Report, opts))

	counts := entityCounts(entities)
	if len(counts) > 0 {
		cmd.Println()
		cmd.Println("Entities:")
		for _, c := range counts {
			cmd.Printf("  %-16s %d\n", c.kind, c.n)
		}
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	if runService == nil {
		return errors.New("run service not configured")
	}
	if err := runService.Delete(commandContext(cmd), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return fmt.Errorf("failed to delete run: %w", err)
	}
	cmd.Printf("Deleted run %s\n", args[0])
	return nil
}

type entityCount struct {
	kind string
	n    int
}

func entityCounts(entities []domain.Entity) []entityCount {
	byType := make(map[string]int)
	for i := range entities {
		byType[entities[i].Type]++
	}
	out := make([]entityCount, 0, len(byType))
	for k, n := range byType {
		out = append(out, entityCount{kind: k, n: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].kind < out[j].kind })
	return out
}
