package reporter

import "sync"

var (
	instanceOnce sync.Once
	instance     *Facade
)

// Instance returns the process-wide façade, constructing it from opts on
// the first call. Options passed on later calls are ignored: every caller
// in the process shares the instance configured by the first.
func Instance(opts Options) *Facade {
	instanceOnce.Do(func() {
		instance = New(opts)
	})
	return instance
}

// resetInstance discards the singleton. Tests only; a real process keeps
// its façade until exit.
func resetInstance() {
	instanceOnce = sync.Once{}
	instance = nil
}
