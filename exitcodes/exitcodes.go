// Package exitcodes defines the standard exit codes used by op-reporter.
package exitcodes

// Exit code constants used by op-reporter
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all results were delivered to a backend
// * ReportFailure (1): Used when no backend could accept the results
// * RuntimeErr (2): Used for runtime errors such as unreadable input or bad configuration
const (
	Success       = 0 // Results delivered
	ReportFailure = 1 // No backend accepted the results
	RuntimeErr    = 2 // Runtime errors
)
