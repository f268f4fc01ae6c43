// Package reporter delivers test-execution results to a configurable
// backend (a remote test-management service or a local report writer) and
// fails over to a secondary backend when the primary breaks, without
// losing collected results or interrupting the test run.
//
// Parallel test-runner processes participating in one logical run
// coordinate through a small persisted run-state record, so that a
// failover decision made by one process is honored by its siblings.
package reporter

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/backend"
	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/runstate"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// State is the façade's operating state. Exactly one state is active at
// any instant; the two failure flags of an ad-hoc design (disabled,
// useFallback) are folded into it so illegal combinations cannot be
// represented.
type State int

const (
	// StatePrimary routes calls to the primary backend.
	StatePrimary State = iota
	// StateFallback routes calls to the secondary backend. Entered at
	// most once per façade; never left except for StateDisabled.
	StateFallback
	// StateDisabled drops all calls. Terminal.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateFallback:
		return "fallback"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Facade orchestrates the two backend reporters. One instance exists per
// process; callers are expected to issue result-mutating operations
// sequentially. Reporting failures degrade the façade, they are never
// surfaced to the test-runner caller.
type Facade struct {
	cfg      *Config
	log      log.Logger
	store    runstate.Store
	primary  backend.Reporter
	fallback backend.Reporter

	mu    sync.Mutex // guards state and the pending start handle
	state State

	startDone chan struct{} // closed when the pending run start settles
}

// New constructs a façade from caller options. Construction never fails:
// any error degrades the façade to StateDisabled and is logged.
func New(opts Options) *Facade {
	logger := opts.Log
	if logger == nil {
		logger = log.Root()
	}

	f := &Facade{log: logger}

	store, forced := f.readSharedState(opts, logger)
	f.store = store

	cfg, err := NewConfig(opts, logger)
	if err != nil {
		logger.Error("Failed to resolve reporter configuration", "error", err)
		metrics.RecordErrorDetails("config resolution failed", err)
		f.state = StateDisabled
		f.stampInitialState(forced != nil)
		return f
	}

	// Run-state overrides outrank every configuration source, including
	// the environment. A sibling's persisted failover decision or run
	// identifier must not be undone by this process's own settings, so
	// they are applied on top of the resolved config.
	if forced != nil {
		if forced.IsModeChanged {
			logger.Info("Run state forces reporter mode", "mode", forced.Mode)
			cfg.Mode = forced.Mode
			cfg.Fallback = ""
		}
		if forced.RunID != "" {
			cfg.Backends.Remote.RunID = forced.RunID
		}
	}
	f.cfg = cfg

	f.constructBackends(cfg, logger)
	f.stampInitialState(forced != nil)
	return f
}

// readSharedState builds the store and loads any pre-existing record.
func (f *Facade) readSharedState(opts Options, logger log.Logger) (runstate.Store, *runstate.RunState) {
	rootDir := firstNonEmpty(opts.RootDir, lookupRootDir())
	store := runstate.NewFileStore(rootDir, logger)
	if !store.Exists() {
		return store, nil
	}
	state, err := store.Read()
	if err != nil {
		logger.Error("Failed to read run state, ignoring it", "error", err)
		return store, nil
	}
	return store, state
}

// constructBackends builds the primary and secondary reporters per the
// resolved configuration, degrading state as construction fails.
func (f *Facade) constructBackends(cfg *Config, logger log.Logger) {
	primary, err := backend.New(cfg.Mode, cfg.Backends, logger)
	if err != nil {
		if errors.Is(err, backend.ErrDisabled) {
			// Explicit "off" selection is a configuration choice, not a
			// failure; the secondary is not consulted.
			logger.Info("Reporter disabled by configuration")
			f.state = StateDisabled
			return
		}
		logger.Error("Failed to construct primary reporter", "mode", cfg.Mode, "error", err)
		metrics.RecordErrorDetails("primary construction failed", err)
		if cfg.Fallback == "" {
			f.state = StateDisabled
			return
		}
		f.state = StateFallback
	}
	f.primary = primary

	if cfg.Fallback == "" {
		return
	}
	fallback, err := backend.New(cfg.Fallback, cfg.Backends, logger)
	if err != nil {
		if errors.Is(err, backend.ErrDisabled) {
			logger.Info("Fallback reporter disabled by configuration")
		} else {
			logger.Error("Failed to construct fallback reporter", "mode", cfg.Fallback, "error", err)
			metrics.RecordErrorDetails("fallback construction failed", err)
		}
		if f.state == StateFallback {
			// Both backends are gone.
			f.state = StateDisabled
		}
		return
	}
	f.fallback = fallback
}

// stampInitialState creates the shared record when this process is the
// first in the logical run, so siblings converge on the same decision.
func (f *Facade) stampInitialState(existed bool) {
	if existed {
		return
	}
	state := &runstate.RunState{Mode: f.selectedMode()}
	if err := f.store.Write(state); err != nil {
		f.log.Error("Failed to create run state record", "error", err)
	}
}

// selectedMode reports which backend selector ended up authoritative.
func (f *Facade) selectedMode() backend.Mode {
	switch f.state {
	case StateDisabled:
		return backend.ModeOff
	case StateFallback:
		return f.cfg.Fallback
	default:
		return f.cfg.Mode
	}
}

// transition is the single place the façade changes state. It enforces
// monotonicity: StateDisabled is terminal and StateFallback never returns
// to StatePrimary. When persist is set the corresponding mode is written
// to the shared run state so sibling processes skip the broken backend.
func (f *Facade) transition(to State, persist bool) {
	f.mu.Lock()
	switch {
	case f.state == StateDisabled:
		f.mu.Unlock()
		return
	case f.state == StateFallback && to == StatePrimary:
		f.mu.Unlock()
		return
	}
	from := f.state
	f.state = to
	f.mu.Unlock()

	if from != to {
		f.log.Warn("Reporter state transition", "from", from, "to", to)
		metrics.RecordFailover(from.String(), to.String())
	}
	if persist {
		f.persistMode(f.selectedMode())
	}
}

// persistMode writes a forced mode decision to the shared run state.
func (f *Facade) persistMode(mode backend.Mode) {
	if err := f.store.SetMode(mode); err != nil {
		f.log.Error("Failed to persist reporter mode", "mode", mode, "error", err)
		metrics.RecordErrorDetails("persist mode failed", err)
	}
}

// State returns the façade's current operating state.
func (f *Facade) State() State {
	return f.currentState()
}

// currentState reads the state under the lock.
func (f *Facade) currentState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// active returns the backend the current state routes to, or nil when
// disabled.
func (f *Facade) active() backend.Reporter {
	switch f.currentState() {
	case StatePrimary:
		return f.primary
	case StateFallback:
		return f.fallback
	default:
		return nil
	}
}

// IsCaptureLogs reports whether test output capture is configured.
func (f *Facade) IsCaptureLogs() bool {
	return f.cfg != nil && f.cfg.CaptureLogs
}

// GetResults returns the buffered results of the authoritative backend,
// in delivery order. Empty when disabled.
func (f *Facade) GetResults() []*types.TestResult {
	b := f.active()
	if b == nil {
		return []*types.TestResult{}
	}
	return b.GetTestResults()
}

// SetTestResults overwrites the authoritative backend's buffer. No-op
// when disabled.
func (f *Facade) SetTestResults(results []*types.TestResult) {
	b := f.active()
	if b == nil {
		return
	}
	b.SetTestResults(results)
}

// StartTestRun triggers the run-start operation on the authoritative
// backend without waiting for it to settle. AddTestResult and the other
// flush operations wait for the pending start before touching a backend.
func (f *Facade) StartTestRun(ctx context.Context) {
	f.mu.Lock()
	if f.state == StateDisabled || f.startDone != nil {
		f.mu.Unlock()
		return
	}
	done := make(chan struct{})
	f.startDone = done
	f.mu.Unlock()

	go func() {
		defer close(done)
		f.startRun(ctx)
	}()
}

// StartTestRunAndWait triggers the run-start operation and waits for it
// to settle.
func (f *Facade) StartTestRunAndWait(ctx context.Context) {
	f.StartTestRun(ctx)
	f.awaitStart(ctx)
}

// startRun performs the run-start with the failover policy of §4.2: a
// primary failure falls over to the secondary; failure of both backends
// permanently disables the façade.
func (f *Facade) startRun(ctx context.Context) {
	if f.currentState() == StatePrimary {
		if err := f.primary.StartTestRun(ctx); err != nil {
			f.log.Error("Primary reporter failed to start run", "error", err)
			metrics.RecordErrorDetails("start run failed", err)
			if f.fallback == nil {
				f.transition(StateDisabled, true)
				return
			}
			f.transition(StateFallback, true)
		} else {
			f.shareRunID(f.primary, f.cfg.Mode)
			return
		}
	}

	if f.currentState() != StateFallback {
		return
	}
	if err := f.fallback.StartTestRun(ctx); err != nil {
		f.log.Error("Fallback reporter failed to start run", "error", err)
		metrics.RecordErrorDetails("start run failed", err)
		f.transition(StateDisabled, true)
		return
	}
	f.shareRunID(f.fallback, f.cfg.Fallback)
}

// shareRunID publishes the remote run identifier into the shared state so
// sibling processes attach their results to the same logical run. Local
// run identifiers are process-private and not shared.
func (f *Facade) shareRunID(b backend.Reporter, mode backend.Mode) {
	if mode != backend.ModeRemote || b.RunID() == "" {
		return
	}
	state, err := f.store.Read()
	if err != nil {
		if !errors.Is(err, runstate.ErrNotExist) {
			f.log.Error("Failed to read run state for run id", "error", err)
			return
		}
		state = &runstate.RunState{Mode: f.selectedMode()}
	}
	if state.RunID != "" {
		return
	}
	state.RunID = b.RunID()
	if err := f.store.Write(state); err != nil {
		f.log.Error("Failed to share run id", "run_id", b.RunID(), "error", err)
	}
}

// awaitStart blocks until the pending run-start settles. Returns
// immediately when no start is pending. A canceled context abandons the
// wait.
func (f *Facade) awaitStart(ctx context.Context) bool {
	f.mu.Lock()
	done := f.startDone
	f.mu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-ctx.Done():
		f.log.Warn("Abandoned wait for run start", "error", ctx.Err())
		return false
	}
}

// AddTestResult delivers one finished result to the authoritative
// backend. When disabled the result is dropped by design. A primary
// failure migrates every previously buffered result into the secondary
// before the failing result is retried there, so nothing collected before
// the failure is lost.
func (f *Facade) AddTestResult(ctx context.Context, result *types.TestResult) {
	if f.currentState() == StateDisabled {
		metrics.RecordDroppedResult()
		return
	}
	if !f.awaitStart(ctx) {
		return
	}

	state := f.currentState()
	if state == StateDisabled {
		metrics.RecordDroppedResult()
		return
	}

	f.logResult(result)
	metrics.RecordResult(string(result.Status), string(f.selectedMode()))

	if state == StateFallback {
		if err := f.fallback.AddTestResult(ctx, result); err != nil {
			f.log.Error("Fallback reporter rejected result", "title", result.Title, "error", err)
			metrics.RecordErrorDetails("add result failed", err)
			f.transition(StateDisabled, true)
		}
		return
	}

	err := f.primary.AddTestResult(ctx, result)
	if err == nil {
		return
	}
	f.log.Error("Primary reporter rejected result", "title", result.Title, "error", err)
	metrics.RecordErrorDetails("add result failed", err)

	if f.fallback == nil {
		f.transition(StateDisabled, true)
		return
	}
	if !f.migrateToFallback(ctx) {
		f.transition(StateDisabled, true)
		return
	}
	f.transition(StateFallback, false)
	if err := f.fallback.AddTestResult(ctx, result); err != nil {
		f.log.Error("Fallback reporter rejected result after migration", "title", result.Title, "error", err)
		metrics.RecordErrorDetails("add result failed", err)
		f.transition(StateDisabled, true)
		return
	}
	f.persistMode(f.cfg.Fallback)
}

// migrateToFallback copies the primary's buffered results into the
// secondary and makes sure the secondary's run exists, preserving the
// ordering guarantee that no result reaches a backend before its run has
// started.
func (f *Facade) migrateToFallback(ctx context.Context) bool {
	f.fallback.SetTestResults(f.primary.GetTestResults())
	if err := f.fallback.StartTestRun(ctx); err != nil {
		f.log.Error("Fallback reporter failed to start run during migration", "error", err)
		metrics.RecordErrorDetails("migration failed", err)
		return false
	}
	return true
}

// SendResults flushes the buffered result set with the same failover
// shape as AddTestResult. A failure of both backends forces Mode=off in
// the shared state so sibling processes stop retrying, but deliberately
// leaves this façade enabled (§7).
func (f *Facade) SendResults(ctx context.Context) {
	if f.currentState() == StateDisabled {
		return
	}
	if !f.awaitStart(ctx) {
		return
	}

	state := f.currentState()
	if state == StateDisabled {
		return
	}

	if state == StateFallback {
		if err := f.fallback.SendResults(ctx); err != nil {
			f.log.Error("Fallback reporter failed to send results", "error", err)
			metrics.RecordErrorDetails("send results failed", err)
			f.persistMode(backend.ModeOff)
		}
		return
	}

	err := f.primary.SendResults(ctx)
	if err == nil {
		return
	}
	f.log.Error("Primary reporter failed to send results", "error", err)
	metrics.RecordErrorDetails("send results failed", err)

	if f.fallback == nil {
		f.persistMode(backend.ModeOff)
		return
	}
	// Flip before the migration attempt: once the primary has failed a
	// flush, it is never retried, whatever the secondary does next.
	f.transition(StateFallback, false)
	if !f.migrateToFallback(ctx) {
		f.persistMode(backend.ModeOff)
		return
	}
	f.persistMode(f.cfg.Fallback)
	if err := f.fallback.SendResults(ctx); err != nil {
		f.log.Error("Fallback reporter failed to send results", "error", err)
		metrics.RecordErrorDetails("send results failed", err)
		f.persistMode(backend.ModeOff)
	}
}

// Publish flushes the buffered results and finalizes the run. The shared
// run state is cleared on every exit path: once publish is attempted the
// logical run is over for every process, whatever the backends did.
// Backend failure on both sides disables the façade.
func (f *Facade) Publish(ctx context.Context) {
	defer func() {
		if err := f.store.Clear(); err != nil {
			f.log.Error("Failed to clear run state", "error", err)
		}
	}()

	if f.currentState() == StateDisabled {
		return
	}
	if !f.awaitStart(ctx) {
		return
	}

	state := f.currentState()
	if state == StateDisabled {
		return
	}

	if state == StateFallback {
		if err := f.fallback.Publish(ctx); err != nil {
			f.log.Error("Fallback reporter failed to publish", "error", err)
			metrics.RecordErrorDetails("publish failed", err)
			f.transition(StateDisabled, true)
		}
		return
	}

	err := f.primary.Publish(ctx)
	if err == nil {
		return
	}
	f.log.Error("Primary reporter failed to publish", "error", err)
	metrics.RecordErrorDetails("publish failed", err)

	if f.fallback == nil {
		f.transition(StateDisabled, true)
		return
	}
	if !f.migrateToFallback(ctx) {
		f.transition(StateDisabled, true)
		return
	}
	f.transition(StateFallback, true)
	if err := f.fallback.Publish(ctx); err != nil {
		f.log.Error("Fallback reporter failed to publish", "error", err)
		metrics.RecordErrorDetails("publish failed", err)
		f.transition(StateDisabled, true)
	}
}

// Complete marks the run finished. The shared run state is cleared first:
// a logical run is over as soon as completion is requested, even if the
// backend call later fails. Backend failures here are logged only; with
// the record gone there is nothing left to coordinate or protect.
func (f *Facade) Complete(ctx context.Context) {
	if err := f.store.Clear(); err != nil {
		f.log.Error("Failed to clear run state", "error", err)
	}

	if f.currentState() == StateDisabled {
		return
	}
	if !f.awaitStart(ctx) {
		return
	}

	state := f.currentState()
	if state == StateDisabled {
		return
	}

	if state == StateFallback {
		if err := f.fallback.Complete(ctx); err != nil {
			f.log.Error("Fallback reporter failed to complete run", "error", err)
			metrics.RecordErrorDetails("complete failed", err)
		}
		return
	}

	err := f.primary.Complete(ctx)
	if err == nil {
		return
	}
	f.log.Error("Primary reporter failed to complete run", "error", err)
	metrics.RecordErrorDetails("complete failed", err)

	if f.fallback == nil {
		return
	}
	if !f.migrateToFallback(ctx) {
		return
	}
	f.transition(StateFallback, false)
	if err := f.fallback.Complete(ctx); err != nil {
		f.log.Error("Fallback reporter failed to complete run", "error", err)
		metrics.RecordErrorDetails("complete failed", err)
	}
}

// lookupRootDir returns the directory the shared run state lives in when
// the caller did not choose one.
func lookupRootDir() string {
	if dir, err := os.Getwd(); err == nil {
		return dir
	}
	return "."
}
