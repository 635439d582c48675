package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/views/report"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

var (
	runText      string
	runSourceURL string
	runMIMEType  string
	runPlain     bool
	runDetails   bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run the pipeline over a document",
	Long: `Ingest a document and run every enabled stage over it.

The input is a file path, "-" for standard input, or a chat request given
with --text. Text fetched elsewhere can be attributed to its URL with
--source-url. Generated files are written under the output directory in a
folder named after the run.

On an interactive terminal a progress view is shown; press q or esc to
cancel the run. Otherwise progress is printed line by line.`,
	Example: `  deepcode run paper.md
  curl -s https://example.org/paper.html | deepcode run - --source-url https://example.org/paper.html
  deepcode run --text "Build a CLI that converts CSV files to JSON"`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: withServices(),
	RunE:        runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runText, "text", "t", "", "chat request to run instead of a file")
	runCmd.Flags().StringVar(&runSourceURL, "source-url", "", "URL the input was fetched from")
	runCmd.Flags().StringVar(&runMIMEType, "mime-type", "", "content type of the input (detected from the name when empty)")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "print progress lines even on a terminal")
	runCmd.Flags().BoolVar(&runDetails, "details", false, "list every segment that did not succeed")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	raw, err := rawInput(cmd, args)
	if err != nil {
		return err
	}
	_, err = executeRun(commandContext(cmd), cmd, raw, !runPlain && isTerminal(cmd.OutOrStdout()))
	return err
}

// rawInput builds the ingestion input from the arguments and flags.
func rawInput(cmd *cobra.Command, args []string) (*domain.RawInput, error) {
	switch {
	case runText != "" && len(args) > 0:
		return nil, errors.New("give either a file or --text, not both")
	case runText != "":
		return &domain.RawInput{
			Source:   domain.SourceChat,
			MIMEType: "text/plain",
			Content:  []byte(runText),
		}, nil
	case len(args) == 0:
		return nil, errors.New("a file, \"-\" or --text is required")
	}

	var (
		content []byte
		err     error
		uri     = args[0]
	)
	if uri == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		uri = ""
	} else {
		content, err = os.ReadFile(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	raw := &domain.RawInput{
		Source:   domain.SourceFile,
		URI:      uri,
		MIMEType: runMIMEType,
		Content:  content,
	}
	if runSourceURL != "" {
		raw.Source = domain.SourceURL
		raw.URI = runSourceURL
	}
	if raw.URI == "" && raw.MIMEType == "" {
		raw.MIMEType = "text/plain"
	}
	return raw, nil
}

// executeRun ingests the input, runs the pipeline and prints the report.
// The returned error is nil only when the run completed.
func executeRun(
	ctx context.Context, cmd *cobra.Command, raw *domain.RawInput, interactive bool,
) (*domain.RunResult, error) {
	if ingestService == nil || pipelineService == nil {
		return nil, errors.New("pipeline services not configured")
	}

	doc, err := ingestService.Ingest(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	runID := uuid.New().String()

	var result *domain.RunResult
	if interactive {
		result, err = runInteractive(ctx, doc, runID)
	} else {
		result, err = pipelineService.Run(ctx, doc, driving.RunOptions{
			RunID:    runID,
			Observer: progressPrinter(cmd.ErrOrStderr()),
		})
	}
	if result == nil {
		if err == nil {
			err = errors.New("run stopped before it finished")
		}
		return nil, err
	}

	s := styles.PlainStyles()
	if interactive {
		s = styles.DefaultStyles()
	}
	opts := report.Options{Details: runDetails}
	if result.Run.Status == domain.RunCompleted {
		opts.Artifacts = result.Artifacts
		if outputDir != "" {
			opts.OutputDir = filepath.Join(outputDir, result.Run.ID)
		}
	}
	cmd.Println(report.Render(s, &result.Report, opts))
	return result, err
}

func runInteractive(ctx context.Context, doc *domain.Document, runID string) (*domain.RunResult, error) {
	app, err := tui.NewApp(&tui.Ports{Pipeline: pipelineService}, doc, runID)
	if err != nil {
		return nil, err
	}
	app.WithContext(ctx)
	if err := app.Run(); err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	return app.Result()
}

// progressPrinter writes one line per run-level event.
func progressPrinter(w io.Writer) driving.RunObserver {
	return driving.RunObserverFunc(func(e domain.RunEvent) {
		switch e.Type {
		case domain.EventRunStarted:
			fmt.Fprintf(w, "run %s started\n", e.RunID)
		case domain.EventSegmented:
			fmt.Fprintf(w, "segmented into %d segment(s)\n", e.Progress.SegmentCount)
		case domain.EventStageStarted:
			fmt.Fprintf(w, "[%d/%d] %s\n", e.Progress.StageIndex+1, e.Progress.StageCount, e.Stage)
		case domain.EventSegmentFinished:
			if e.Outcome != nil && e.Outcome.Status != domain.SegmentSucceeded {
				fmt.Fprintf(w, "  segment %d %s: %s\n", e.Outcome.Segment, e.Outcome.Status, e.Outcome.Failure)
			} else if e.Outcome != nil {
				logger.Debug("%s segment %d succeeded after %d attempt(s)", e.Stage, e.Outcome.Segment, e.Outcome.Attempts)
			}
		case domain.EventStageFinished:
			fmt.Fprintf(w, "  %s finished: %s\n", e.Stage, stageSummary(e.Report, e.Stage))
		case domain.EventRunFinished:
			fmt.Fprintf(w, "run %s %s\n", e.RunID, e.Progress.Status)
		}
	})
}

func stageSummary(r *domain.RunReport, stage domain.Stage) string {
	if r == nil {
		return "done"
	}
	sr := r.Stage(stage)
	if sr == nil {
		return "done"
	}
	parts := []string{fmt.Sprintf("%d succeeded", sr.Succeeded)}
	if sr.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", sr.Skipped))
	}
	if sr.Cancelled > 0 {
		parts = append(parts, fmt.Sprintf("%d cancelled", sr.Cancelled))
	}
	if sr.Starved {
		parts = append(parts, "starved")
	}
	return strings.Join(parts, ", ")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
