// Package local implements the backend reporter that writes a report
// artifact to the local filesystem instead of a remote service.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	// RunDirectoryPrefix is the standardized prefix for run directories.
	RunDirectoryPrefix = "testrun-"

	reportFilename  = "report.json"
	summaryFilename = "summary.log"
)

// Config holds the settings for the local backend.
type Config struct {
	OutputDir string // Directory under which run directories are created
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("local reporter requires an output directory")
	}
	return nil
}

// Reporter writes test results into a per-run directory on disk.
type Reporter struct {
	cfg     Config
	log     log.Logger
	runID   string
	runDir  string
	started time.Time
	results []*types.TestResult
}

// New creates a local reporter. The output directory is created lazily
// when the run starts.
func New(cfg Config, logger log.Logger) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create local reporter: %w", err)
	}
	return &Reporter{
		cfg: cfg,
		log: logger,
	}, nil
}

// RunID returns the local run identifier, or "" before the run exists.
func (r *Reporter) RunID() string {
	return r.runID
}

// StartTestRun allocates a run identifier and creates the run directory.
func (r *Reporter) StartTestRun(ctx context.Context) error {
	if r.runID != "" {
		return nil
	}
	runID := uuid.New().String()
	runDir := filepath.Join(r.cfg.OutputDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}
	r.runID = runID
	r.runDir = runDir
	r.started = time.Now()
	r.log.Info("Started local run", "run_id", runID, "dir", runDir)
	return nil
}

// AddTestResult buffers one result for the report.
func (r *Reporter) AddTestResult(ctx context.Context, result *types.TestResult) error {
	if r.runID == "" {
		return fmt.Errorf("cannot add result %q: run has not been started", result.Title)
	}
	if err := result.Validate(); err != nil {
		return fmt.Errorf("cannot add result: %w", err)
	}
	r.results = append(r.results, result)
	return nil
}

// GetTestResults returns a copy of the buffered results in order.
func (r *Reporter) GetTestResults() []*types.TestResult {
	out := make([]*types.TestResult, len(r.results))
	copy(out, r.results)
	return out
}

// SetTestResults replaces the buffer wholesale.
func (r *Reporter) SetTestResults(results []*types.TestResult) {
	r.results = make([]*types.TestResult, len(results))
	copy(r.results, results)
}

// reportStats aggregates result counts for the report header.
type reportStats struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Blocked  int `json:"blocked"`
	Disabled int `json:"disabled"`
	Invalid  int `json:"invalid"`
}

type report struct {
	RunID     string              `json:"run_id"`
	CreatedAt time.Time           `json:"created_at"`
	Duration  time.Duration       `json:"duration"`
	Stats     reportStats         `json:"stats"`
	Results   []*types.TestResult `json:"results"`
}

func (r *Reporter) buildStats() reportStats {
	var s reportStats
	for _, res := range r.results {
		s.Total++
		switch res.Status {
		case types.TestStatusPassed:
			s.Passed++
		case types.TestStatusFailed:
			s.Failed++
		case types.TestStatusSkipped:
			s.Skipped++
		case types.TestStatusBlocked:
			s.Blocked++
		case types.TestStatusDisabled:
			s.Disabled++
		case types.TestStatusInvalid:
			s.Invalid++
		}
	}
	return s
}

// SendResults writes the JSON report into the run directory. The write is
// atomic so a crashed process never leaves a truncated report behind.
func (r *Reporter) SendResults(ctx context.Context) error {
	if r.runID == "" {
		return fmt.Errorf("cannot send results: run has not been started")
	}

	rep := report{
		RunID:     r.runID,
		CreatedAt: r.started,
		Duration:  time.Since(r.started),
		Stats:     r.buildStats(),
		Results:   r.results,
	}
	encoded, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	target := filepath.Join(r.runDir, reportFilename)
	if err := writeFileAtomic(target, encoded); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	r.log.Debug("Wrote local report", "path", target, "results", len(r.results))
	return nil
}

// Publish writes the report and the human-readable summary.
func (r *Reporter) Publish(ctx context.Context) error {
	if err := r.SendResults(ctx); err != nil {
		return err
	}
	return r.Complete(ctx)
}

// Complete writes the plain-text summary, finishing the run on disk.
func (r *Reporter) Complete(ctx context.Context) error {
	if r.runID == "" {
		return fmt.Errorf("cannot complete run: run has not been started")
	}

	var sb strings.Builder
	stats := r.buildStats()
	fmt.Fprintf(&sb, "Test run %s\n", r.runID)
	fmt.Fprintf(&sb, "Started:  %s\n", r.started.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Total: %d  Passed: %d  Failed: %d  Skipped: %d  Blocked: %d  Invalid: %d\n\n",
		stats.Total, stats.Passed, stats.Failed, stats.Skipped, stats.Blocked, stats.Invalid)
	for _, res := range r.results {
		fmt.Fprintf(&sb, "[%s] %s (%.1fs)\n", res.Status, res.DisplayName(), res.Duration.Seconds())
		if res.Message != "" {
			fmt.Fprintf(&sb, "    %s\n", firstLine(res.Message))
		}
	}

	target := filepath.Join(r.runDir, summaryFilename)
	if err := writeFileAtomic(target, []byte(sb.String())); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	r.log.Info("Completed local run", "run_id", r.runID, "summary", target)
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, target)
}

// firstLine truncates a message to its first line for the summary.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
