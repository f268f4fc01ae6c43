package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "reporter"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "results_total",
		Help:      "Count of test results delivered, by status and backend mode",
	}, []string{
		"status",
		"mode",
	})

	failoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "failovers_total",
		Help:      "Count of reporter state transitions",
	}, []string{
		"from",
		"to",
	})

	droppedResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dropped_results_total",
		Help:      "Count of results dropped because the reporter was disabled",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordResult counts one delivered test result.
func RecordResult(status string, mode string) {
	if Debug {
		log.Debug("metric inc",
			"m", "results_total",
			"status", status,
			"mode", mode,
		)
	}
	resultsTotal.WithLabelValues(status, mode).Inc()
}

// RecordFailover counts one reporter state transition.
func RecordFailover(from string, to string) {
	if Debug {
		log.Debug("metric inc",
			"m", "failovers_total",
			"from", from,
			"to", to,
		)
	}
	failoversTotal.WithLabelValues(from, to).Inc()
}

// RecordDroppedResult counts a result dropped by a disabled reporter.
func RecordDroppedResult() {
	droppedResultsTotal.Inc()
}
