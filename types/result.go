package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TestStatus represents the possible outcomes of a test execution
type TestStatus string

const (
	TestStatusPassed   TestStatus = "passed"
	TestStatusFailed   TestStatus = "failed"
	TestStatusSkipped  TestStatus = "skipped"
	TestStatusBlocked  TestStatus = "blocked"
	TestStatusDisabled TestStatus = "disabled"
	TestStatusInvalid  TestStatus = "invalid"
)

// validStatuses lists every status a runner may hand to the reporter.
var validStatuses = []TestStatus{
	TestStatusPassed,
	TestStatusFailed,
	TestStatusSkipped,
	TestStatusBlocked,
	TestStatusDisabled,
	TestStatusInvalid,
}

// IsValid returns true if the status is one of the known outcomes.
func (s TestStatus) IsValid() bool {
	for _, valid := range validStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// Attachment is a file or inline blob attached to a test result.
// Either Path or Content is set; Content takes precedence when both are.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Path        string `json:"path,omitempty"`
	Content     []byte `json:"content,omitempty"`
}

// TestResult captures the outcome of a single finished test.
// A result is immutable once handed to the reporter; backends buffer
// pointers to it but never modify it.
type TestResult struct {
	ID          string            `json:"id,omitempty"`        // Caller-assigned case identifier, if any
	Signature   string            `json:"signature,omitempty"` // Stable identity for deduplication across runs
	Title       string            `json:"title"`
	Status      TestStatus        `json:"status"`
	Message     string            `json:"message,omitempty"` // Failure or skip detail
	Duration    time.Duration     `json:"duration"`
	StartTime   time.Time         `json:"start_time,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Stdout      string            `json:"stdout,omitempty"` // Captured output, populated when log capture is on
}

// Validate checks that a result is well-formed enough to report.
func (r *TestResult) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("test result has no title")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("test result %q has unknown status %q", r.Title, r.Status)
	}
	return nil
}

// DisplayName returns a short human-readable name for console output.
// Parameterized tests get their params appended so repeated titles stay
// distinguishable.
func (r *TestResult) DisplayName() string {
	if len(r.Params) == 0 {
		return r.Title
	}
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r.Params[k])
	}
	return fmt.Sprintf("%s (%s)", r.Title, strings.Join(parts, ", "))
}
