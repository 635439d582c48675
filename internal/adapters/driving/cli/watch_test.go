package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
)

func TestWatchCmd_Flags(t *testing.T) {
	debounce := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounce)
	assert.Equal(t, "500ms", debounce.DefValue)
	assert.NotNil(t, watchCmd.Flags().Lookup("ext"))
}

func TestWatchCmd_RequiresDir(t *testing.T) {
	setupTestServices(t)

	_, _, err := executeRoot(t, "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestWatchCmd_MissingDir(t *testing.T) {
	setupTestServices(t)

	_, _, err := executeRoot(t, "watch", filepath.Join(t.TempDir(), "missing"))

	assert.Error(t, err)
}

func TestProcessInboxFile(t *testing.T) {
	ts := setupTestServices(t)
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0600))

	cmd := &cobra.Command{}
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := processInboxFile(context.Background(), cmd, path)

	require.NoError(t, err)
	raw := ts.ingest.last()
	require.NotNil(t, raw)
	assert.Equal(t, domain.SourceFile, raw.Source)
	assert.Equal(t, path, raw.URI)
	assert.Contains(t, out.String(), "completed")
}

func TestWatchCmd_ProcessesDroppedFile(t *testing.T) {
	ts := setupTestServices(t)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Subcommands keep the context of their first execution.
	watchCmd.SetContext(ctx)
	defer watchCmd.SetContext(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := executeRoot(t, "watch", dir, "--debounce", "50ms")
		done <- err
	}()

	// Give the watcher time to register.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.md"), []byte("# Paper"), 0600))

	assert.Eventually(t, func() bool { return ts.ingest.last() != nil }, 3*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
