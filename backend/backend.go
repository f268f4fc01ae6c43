// Package backend defines the capability contract every concrete result
// destination satisfies, and the factory that constructs one from a mode
// selector.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/backend/local"
	"github.com/ethereum-optimism/infra/op-reporter/backend/remote"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Mode selects which backend implementation handles results.
type Mode string

const (
	// ModeRemote reports to the remote test-management service.
	ModeRemote Mode = "remote"
	// ModeLocal writes a report artifact to the local filesystem.
	ModeLocal Mode = "local"
	// ModeOff is an explicit disable signal, not a real backend.
	ModeOff Mode = "off"
)

// ErrDisabled is returned by New when the mode is an explicit "off"
// selection. Callers treat it as a configuration choice, not a failure.
var ErrDisabled = errors.New("reporter backend disabled by configuration")

// ParseMode validates a mode string. The empty string is allowed and
// means "not configured".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRemote, ModeLocal, ModeOff, "":
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown reporter mode %q (must be one of: %s, %s, %s)", s, ModeRemote, ModeLocal, ModeOff)
	}
}

// Reporter is the contract both backend variants satisfy. Every operation
// that can fail reports the failure to the caller; nothing is swallowed
// internally.
type Reporter interface {
	// RunID returns the identifier of the run on this backend, or ""
	// before StartTestRun has succeeded.
	RunID() string

	// StartTestRun creates (or attaches to) a run on the backend.
	StartTestRun(ctx context.Context) error

	// AddTestResult delivers one finished test result.
	AddTestResult(ctx context.Context, result *types.TestResult) error

	// GetTestResults returns the buffered results in delivery order.
	GetTestResults() []*types.TestResult

	// SetTestResults replaces the buffered results wholesale.
	SetTestResults(results []*types.TestResult)

	// SendResults flushes the buffered results to the backend.
	SendResults(ctx context.Context) error

	// Publish flushes buffered results and finalizes the run.
	Publish(ctx context.Context) error

	// Complete marks the run finished on the backend.
	Complete(ctx context.Context) error
}

// Compile-time checks that both variants satisfy the contract.
var (
	_ Reporter = (*remote.Reporter)(nil)
	_ Reporter = (*local.Reporter)(nil)
)

// Config carries the backend-specific sub-configs. Only the sub-config
// for the selected mode is consulted.
type Config struct {
	Remote remote.Config
	Local  local.Config
}

// New constructs the backend for the given mode. ModeOff always fails
// with ErrDisabled.
func New(mode Mode, cfg Config, logger log.Logger) (Reporter, error) {
	switch mode {
	case ModeRemote:
		return remote.New(cfg.Remote, logger)
	case ModeLocal:
		return local.New(cfg.Local, logger)
	case ModeOff:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("cannot construct reporter for mode %q", mode)
	}
}
