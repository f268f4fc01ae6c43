// Package runstate persists the small coordination record shared by all
// processes participating in one logical test run.
//
// The store is deliberately weakly consistent: SetMode is a plain
// read-modify-write with last-writer-wins semantics. The worst outcome of
// a race is that a sibling process observes a stale mode and retries a
// broken backend once before failing over itself. Locking would serialize
// parallel test workers, which is the trade-off this design rejects.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/backend"
)

// Filename is the fixed name of the run-state record. All cooperating
// processes derive the same path from their shared root directory.
const Filename = ".op-reporter-runstate.json"

// RunState is the cross-process coordination record.
type RunState struct {
	// RunID is the identifier of the logical run on the remote backend,
	// or "" when no remote run exists.
	RunID string `json:"run_id,omitempty"`
	// Mode is the backend that is currently authoritative.
	Mode backend.Mode `json:"mode"`
	// IsModeChanged is set when a process forced a failover decision, so
	// later processes skip the broken primary entirely.
	IsModeChanged bool `json:"is_mode_changed,omitempty"`
}

// ErrNotExist is returned by Read when no record exists.
var ErrNotExist = errors.New("run state record does not exist")

// Store is the contract for run-state persistence. Any medium with
// read/write/clear/exists semantics satisfies it.
type Store interface {
	Exists() bool
	Read() (*RunState, error)
	Write(state *RunState) error
	SetMode(mode backend.Mode) error
	Clear() error
}

// FileStore persists the run state as a JSON file at a fixed path under
// the configured root directory.
type FileStore struct {
	path string
	log  log.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. An empty dir means the
// current working directory.
func NewFileStore(dir string, logger log.Logger) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{
		path: filepath.Join(dir, Filename),
		log:  logger,
	}
}

// Path returns the location of the record.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether a record is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Read loads the record. Fails with ErrNotExist when no record exists.
func (s *FileStore) Read() (*RunState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read run state %s: %w", s.path, err)
	}
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode run state %s: %w", s.path, err)
	}
	return &state, nil
}

// Write overwrites the record. The write goes through a temp file and a
// rename so concurrent readers never observe a torn record.
func (s *FileStore) Write(state *RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode run state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), Filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp run state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write run state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close run state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move run state into place: %w", err)
	}
	s.log.Debug("Wrote run state", "path", s.path, "mode", state.Mode, "run_id", state.RunID, "mode_changed", state.IsModeChanged)
	return nil
}

// SetMode updates Mode and marks the decision as forced, leaving RunID
// untouched. This is a read-modify-write; see the package comment for the
// race it tolerates.
func (s *FileStore) SetMode(mode backend.Mode) error {
	state, err := s.Read()
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			return err
		}
		state = &RunState{}
	}
	state.Mode = mode
	state.IsModeChanged = true
	return s.Write(state)
}

// Clear deletes the record, ending the logical run. Clearing an absent
// record is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear run state %s: %w", s.path, err)
	}
	s.log.Debug("Cleared run state", "path", s.path)
	return nil
}
