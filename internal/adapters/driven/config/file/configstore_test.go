package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, ConfigFile), store.Path())
	assert.Empty(t, store.Keys(""))
}

func TestNewConfigStore_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte("not = [toml"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_LoadsTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[pipeline]
segment_threshold = 50000
calls_per_second = 2
stage_timeout = "90s"
optional_stages = ["reference_mine", "index"]

[stages]
plan = "planner"

[agents.planner]
command = "deepcode"
args = ["agent", "serve", "--role", "plan"]

[logging]
verbose = true
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 50000, store.GetInt("pipeline.segment_threshold"))
	assert.InDelta(t, 2.0, store.GetFloat("pipeline.calls_per_second"), 1e-9)
	assert.Equal(t, 90*time.Second, store.GetDuration("pipeline.stage_timeout"))
	assert.Equal(t, []string{"reference_mine", "index"}, store.GetStringSlice("pipeline.optional_stages"))
	assert.Equal(t, "planner", store.GetString("stages.plan"))
	assert.Equal(t, []string{"agent", "serve", "--role", "plan"}, store.GetStringSlice("agents.planner.args"))
	assert.True(t, store.GetBool("logging.verbose"))

	assert.Equal(t, []string{"agents", "logging", "pipeline", "stages"}, store.Keys(""))
	assert.Equal(t, []string{"planner"}, store.Keys("agents"))
	assert.Equal(t, []string{"args", "command"}, store.Keys("agents.planner"))
}

func TestConfigStore_WrongTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("s", "text"))
	require.NoError(t, store.Set("n", int64(3)))

	assert.Zero(t, store.GetInt("s"))
	assert.Zero(t, store.GetFloat("s"))
	assert.Zero(t, store.GetDuration("s"))
	assert.Zero(t, store.GetDuration("n"))
	assert.Empty(t, store.GetString("n"))
	assert.False(t, store.GetBool("n"))
	assert.Nil(t, store.GetStringSlice("n"))
}

func TestConfigStore_SaveWritesNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("pipeline.max_retries", 5))
	require.NoError(t, store.Set("agents.coder.url", "http://localhost:9000/mcp"))
	require.NoError(t, store.Set("output.dir", "/tmp/out"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[pipeline]")
	assert.Contains(t, string(data), "[agents.coder]")
	assert.NotContains(t, string(data), `"pipeline.max_retries"`)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Reload from disk
	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.GetInt("pipeline.max_retries"))
	assert.Equal(t, "http://localhost:9000/mcp", reloaded.GetString("agents.coder.url"))
	assert.Equal(t, "/tmp/out", reloaded.GetString("output.dir"))
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
		"e.f":   2,
	})

	assert.Equal(t, map[string]any{
		"a":   map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"e":   true,
		"e.f": 2,
	}, nested)
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"e": true,
	}, "")

	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flat)
}
