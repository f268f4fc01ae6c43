package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func newReporter(t *testing.T) *Reporter {
	t.Helper()
	r, err := New(Config{OutputDir: t.TempDir()}, log.Root())
	require.NoError(t, err)
	return r
}

func passedResult(title string) *types.TestResult {
	return &types.TestResult{
		Title:    title,
		Status:   types.TestStatusPassed,
		Duration: 100 * time.Millisecond,
	}
}

func TestNew_RequiresOutputDir(t *testing.T) {
	_, err := New(Config{}, log.Root())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory")
}

func TestStartTestRun_CreatesRunDirectory(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir}, log.Root())
	require.NoError(t, err)

	require.Empty(t, r.RunID())
	require.NoError(t, r.StartTestRun(context.Background()))
	require.NotEmpty(t, r.RunID())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir())
	assert.Equal(t, RunDirectoryPrefix+r.RunID(), entries[0].Name())
}

func TestStartTestRun_Idempotent(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()
	require.NoError(t, r.StartTestRun(ctx))
	runID := r.RunID()

	require.NoError(t, r.StartTestRun(ctx))
	assert.Equal(t, runID, r.RunID())
}

func TestAddTestResult_RequiresStartedRun(t *testing.T) {
	r := newReporter(t)
	err := r.AddTestResult(context.Background(), passedResult("T1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run has not been started")
}

func TestAddTestResult_RejectsInvalidResult(t *testing.T) {
	r := newReporter(t)
	require.NoError(t, r.StartTestRun(context.Background()))

	err := r.AddTestResult(context.Background(), &types.TestResult{Status: types.TestStatusPassed})
	require.Error(t, err)
}

func TestSendResults_WritesReport(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir}, log.Root())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.StartTestRun(ctx))
	require.NoError(t, r.AddTestResult(ctx, passedResult("T1")))
	require.NoError(t, r.AddTestResult(ctx, &types.TestResult{
		Title:    "T2",
		Status:   types.TestStatusFailed,
		Message:  "assertion failed",
		Duration: time.Second,
	}))
	require.NoError(t, r.SendResults(ctx))

	data, err := os.ReadFile(filepath.Join(dir, RunDirectoryPrefix+r.RunID(), "report.json"))
	require.NoError(t, err)

	var rep report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, r.RunID(), rep.RunID)
	assert.Equal(t, 2, rep.Stats.Total)
	assert.Equal(t, 1, rep.Stats.Passed)
	assert.Equal(t, 1, rep.Stats.Failed)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, "T1", rep.Results[0].Title)
	assert.Equal(t, "T2", rep.Results[1].Title)
}

func TestPublish_WritesReportAndSummary(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir}, log.Root())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.StartTestRun(ctx))
	require.NoError(t, r.AddTestResult(ctx, passedResult("T1")))
	require.NoError(t, r.Publish(ctx))

	runDir := filepath.Join(dir, RunDirectoryPrefix+r.RunID())
	assert.FileExists(t, filepath.Join(runDir, "report.json"))

	summary, err := os.ReadFile(filepath.Join(runDir, "summary.log"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), r.RunID())
	assert.Contains(t, string(summary), "Passed: 1")
	assert.Contains(t, string(summary), "T1")
}

func TestComplete_TruncatesMultilineMessages(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{OutputDir: dir}, log.Root())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.StartTestRun(ctx))
	require.NoError(t, r.AddTestResult(ctx, &types.TestResult{
		Title:   "T1",
		Status:  types.TestStatusFailed,
		Message: "first line\nsecond line",
	}))
	require.NoError(t, r.Complete(ctx))

	summary, err := os.ReadFile(filepath.Join(dir, RunDirectoryPrefix+r.RunID(), "summary.log"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "first line")
	assert.False(t, strings.Contains(string(summary), "second line"))
}

func TestSendResults_RequiresStartedRun(t *testing.T) {
	r := newReporter(t)
	require.Error(t, r.SendResults(context.Background()))
	require.Error(t, r.Complete(context.Background()))
}

func TestSetTestResults_ReplacesBuffer(t *testing.T) {
	r := newReporter(t)
	ctx := context.Background()
	require.NoError(t, r.StartTestRun(ctx))
	require.NoError(t, r.AddTestResult(ctx, passedResult("old")))

	r.SetTestResults([]*types.TestResult{passedResult("new-1"), passedResult("new-2")})

	got := r.GetTestResults()
	require.Len(t, got, 2)
	assert.Equal(t, "new-1", got[0].Title)
	assert.Equal(t, "new-2", got[1].Title)
}
