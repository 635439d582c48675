package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/watch"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

var (
	watchDebounce   time.Duration
	watchExtensions []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Run the pipeline on every file dropped into a directory",
	Long: `Watch a directory and run the pipeline on each text file written to it.

Files are picked up once they have not changed for the debounce period and
are processed one at a time. Subdirectories and hidden files are ignored.
Press Ctrl+C to stop watching.`,
	Args:        cobra.ExactArgs(1),
	Annotations: withServices(),
	RunE:        runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a file is processed")
	watchCmd.Flags().StringSliceVar(&watchExtensions, "ext", nil, "file extensions to accept (default common text formats)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts := []watch.Option{watch.WithDebounce(watchDebounce)}
	if len(watchExtensions) > 0 {
		opts = append(opts, watch.WithExtensions(watchExtensions...))
	}

	inbox := watch.New(args[0], func(ctx context.Context, path string) error {
		return processInboxFile(ctx, cmd, path)
	}, opts...)

	cmd.PrintErrf("Watching %s (Ctrl+C to stop)\n", args[0])
	return inbox.Run(commandContext(cmd))
}

// processInboxFile runs the pipeline over one file without the progress view.
func processInboxFile(ctx context.Context, cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	_, err = executeRun(ctx, cmd, &domain.RawInput{
		Source:  domain.SourceFile,
		URI:     path,
		Content: content,
	}, false)
	return err
}
