package reporter

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// statusLine returns the colored console line for one finished test.
func statusLine(result *types.TestResult) string {
	label := resultLabel(result.Status)
	return fmt.Sprintf("%s %s (%s)", label, result.DisplayName(), formatDuration(result.Duration))
}

// resultLabel returns a colored, status-keyed marker.
func resultLabel(status types.TestStatus) string {
	switch status {
	case types.TestStatusPassed:
		return text.FgGreen.Sprint("✓ passed")
	case types.TestStatusFailed:
		return text.FgRed.Sprint("✗ failed")
	case types.TestStatusSkipped:
		return text.FgYellow.Sprint("- skipped")
	case types.TestStatusBlocked:
		return text.FgMagenta.Sprint("! blocked")
	case types.TestStatusDisabled:
		return text.Faint.Sprint("~ disabled")
	default:
		return text.FgYellow.Sprint("? invalid")
	}
}

// logResult prints the per-result console line. Reporting stays a
// side-channel: output goes to stdout, never through the error log.
func (f *Facade) logResult(result *types.TestResult) {
	fmt.Println(statusLine(result))
}

// SummaryTable renders the buffered results as a console table, styled by
// the overall outcome.
func (f *Facade) SummaryTable() {
	results := f.GetResults()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Test Report")
	t.AppendHeader(table.Row{"Status", "Test", "Duration", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Message", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	var passed, failed, other int
	var total time.Duration
	for _, r := range results {
		t.AppendRow(table.Row{string(r.Status), r.DisplayName(), formatDuration(r.Duration), r.Message})
		total += r.Duration
		switch r.Status {
		case types.TestStatusPassed:
			passed++
		case types.TestStatusFailed:
			failed++
		default:
			other++
		}
	}

	switch {
	case failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case passed == 0 && other > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{"TOTAL", fmt.Sprintf("%d tests", len(results)), formatDuration(total), fmt.Sprintf("%d passed, %d failed", passed, failed)})
	t.Render()
}

// formatDuration renders a duration as seconds with one decimal place.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
