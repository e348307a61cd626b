package shelltool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTool(t *testing.T, cfg Config) *Tool {
	t.Helper()
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = t.TempDir()
	}
	tool, err := New(cfg, nil, nil)
	require.NoError(t, err)
	return tool
}

func TestExecuteRunsReadCommandSuccessfully(t *testing.T) {
	tool := newTool(t, Config{Mode: ReadWrite})
	out, err := tool.Execute(context.Background(), map[string]string{"command": "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecuteMissingCommandArgFails(t *testing.T) {
	tool := newTool(t, Config{Mode: ReadWrite})
	_, err := tool.Execute(context.Background(), map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required arg")
}

func TestExecuteBlockedCommandFailsInEitherMode(t *testing.T) {
	for _, mode := range []Mode{ReadOnly, ReadWrite} {
		tool := newTool(t, Config{Mode: mode})
		_, err := tool.Execute(context.Background(), map[string]string{"command": "rm -rf /"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "blocked")
	}
}

func TestExecuteReadOnlyBlocksWriteCommand(t *testing.T) {
	dir := t.TempDir()
	tool := newTool(t, Config{Mode: ReadOnly, WorkingDir: dir})

	_, err := tool.Execute(context.Background(), map[string]string{"command": "rm somefile"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestExecuteReadWriteAllowsWriteCommand(t *testing.T) {
	dir := t.TempDir()
	tool := newTool(t, Config{Mode: ReadWrite, WorkingDir: dir})

	_, err := tool.Execute(context.Background(), map[string]string{"command": "touch somefile.txt"})
	require.NoError(t, err)
}

func TestExecuteNonZeroExitReturnsExitCodeAndStreams(t *testing.T) {
	tool := newTool(t, Config{Mode: ReadWrite})
	_, err := tool.Execute(context.Background(), map[string]string{"command": "echo boom 1>&2; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestExecuteRunsInConfiguredWorkingDir(t *testing.T) {
	dir := t.TempDir()
	tool := newTool(t, Config{Mode: ReadWrite, WorkingDir: dir})

	out, err := tool.Execute(context.Background(), map[string]string{"command": "pwd"})
	require.NoError(t, err)
	assert.Contains(t, strings.TrimSpace(out), strings.TrimSuffix(dir, "/"))
}

func TestTruncateLeavesShortOutputUntouched(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
}

func TestTruncateCutsAtCodePointBoundary(t *testing.T) {
	s := strings.Repeat("a", 10) + "€" + strings.Repeat("b", 10)
	// '€' is 3 bytes (0xE2 0x82 0xAC); cut at offset 11 lands mid-rune.
	out := truncate(s, 11)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 10)))
	assert.Contains(t, out, "[truncated: showing 10/23 bytes]")
}

func TestTruncateMarkerReportsShownAndTotalBytes(t *testing.T) {
	s := strings.Repeat("x", 100)
	out := truncate(s, 10)
	assert.Contains(t, out, "[truncated: showing 10/100 bytes]")
	assert.True(t, strings.HasPrefix(out, strings.Repeat("x", 10)))
}

func TestDescriptionReflectsMode(t *testing.T) {
	ro := newTool(t, Config{Mode: ReadOnly})
	rw := newTool(t, Config{Mode: ReadWrite})
	assert.Contains(t, ro.Description(), "read-only")
	assert.Contains(t, rw.Description(), "read-write")
}

func TestExecuteRequiresConfirmationAndRespectsAnswer(t *testing.T) {
	dir := t.TempDir()

	yesTool, err := New(Config{Mode: ReadWrite, WorkingDir: dir, RequireConfirmation: true}, strings.NewReader("y\n"), &strings.Builder{})
	require.NoError(t, err)
	_, err = yesTool.Execute(context.Background(), map[string]string{"command": "echo hi"})
	require.NoError(t, err)

	noTool, err := New(Config{Mode: ReadWrite, WorkingDir: dir, RequireConfirmation: true}, strings.NewReader("n\n"), &strings.Builder{})
	require.NoError(t, err)
	_, err = noTool.Execute(context.Background(), map[string]string{"command": "echo hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}
