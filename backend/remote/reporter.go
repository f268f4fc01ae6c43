package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Reporter buffers results in memory and ships them to the remote
// service in batches. It owns its buffer exclusively; callers replace it
// wholesale via SetTestResults, never mutate it in place.
type Reporter struct {
	client  *Client
	cfg     Config
	log     log.Logger
	runID   string
	results []*types.TestResult
}

// New creates a remote reporter. Construction validates the config and
// builds the HTTP client but performs no network calls.
func New(cfg Config, logger log.Logger) (*Reporter, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote reporter: %w", err)
	}
	return &Reporter{
		client: client,
		cfg:    cfg,
		log:    logger,
	}, nil
}

// RunID returns the remote run identifier, or "" before the run exists.
func (r *Reporter) RunID() string {
	return r.runID
}

// StartTestRun attaches to the configured run if one was given, otherwise
// creates a new run on the service.
func (r *Reporter) StartTestRun(ctx context.Context) error {
	if r.runID != "" {
		return nil
	}
	if r.cfg.RunID != "" {
		r.runID = r.cfg.RunID
		r.log.Debug("Attached to existing remote run", "run_id", r.runID)
		return nil
	}

	title := r.cfg.RunTitle
	if title == "" {
		title = fmt.Sprintf("Automated run %s", time.Now().Format(time.RFC3339))
	}
	runID, err := r.client.CreateRun(ctx, title)
	if err != nil {
		return err
	}
	r.runID = runID
	r.log.Info("Started remote run", "project", r.cfg.Project, "run_id", runID)
	return nil
}

// AddTestResult buffers one result for the next flush.
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

// SendResults uploads the buffered results to the run. The buffer is kept
// so a later Publish still has the full result set.
func (r *Reporter) SendResults(ctx context.Context) error {
	if r.runID == "" {
		return fmt.Errorf("cannot send results: run has not been started")
	}
	if len(r.results) == 0 {
		r.log.Debug("No results to send", "run_id", r.runID)
		return nil
	}
	return r.client.AddResults(ctx, r.runID, r.results)
}

// Publish uploads the buffered results and finalizes the run.
func (r *Reporter) Publish(ctx context.Context) error {
	if err := r.SendResults(ctx); err != nil {
		return err
	}
	return r.Complete(ctx)
}

// Complete marks the run finished on the service.
func (r *Reporter) Complete(ctx context.Context) error {
	if r.runID == "" {
		return fmt.Errorf("cannot complete run: run has not been started")
	}
	return r.client.CompleteRun(ctx, r.runID)
}
